package console

import (
	"strings"

	"github.com/leandrodaf/uad2midi/sdk/contracts"
)

// commander sends one command frame to the console.
type commander interface {
	command(cmd string) error
}

func getCommand(path string) string { return "get " + path }

func subscribeCommand(path string) string { return "subscribe " + path }

func devicePath(segments ...string) string {
	return "/" + segmentDevices + "/" + strings.Join(segments, "/")
}

// discovery walks the console device tree and issues subscriptions.
type discovery struct {
	rules *RuleTable
	tree  *DeviceTree
	subs  *SubscriptionRegistry
	out   commander
	log   contracts.Logger
}

// begin starts discovery on a fresh connection. In the absolute dialect
// every distinct rule path is subscribed before the device list is requested.
func (d *discovery) begin() {
	if d.rules.Dialect() == contracts.DialectAbsolute {
		for _, path := range d.rules.Paths() {
			d.subscribe("", path)
		}
	}
	_ = d.out.command(getCommand("/" + segmentDevices))
}

func (d *discovery) subscribe(deviceID, target string) {
	if !d.subs.Add(deviceID, target) {
		return
	}
	path := target
	if deviceID != "" {
		path = deviceID + "/" + target
	}
	d.log.Info("Subscribing to console path", d.log.Field().String("path", path))
	_ = d.out.command(subscribeCommand(path))
}

func (d *discovery) deviceList(r Route) {
	ids, ok := r.ChildKeys()
	if !ok {
		d.log.Debug("Device list without children", d.log.Field().String("path", r.Address.Path))
		return
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		d.tree.Device(id)
		d.log.Info("Requesting data for console device (enable debug logging to trace data)",
			d.log.Field().String("device", id))
		_ = d.out.command(getCommand(devicePath(id)))
	}
}

func (d *discovery) deviceDetail(r Route) {
	id := r.DeviceID()
	if id == "" {
		return
	}
	props, hasProps := r.Properties()
	if hasProps {
		d.tree.SetProperties(id, props)
	}

	if d.rules.Dialect() == contracts.DialectAbsolute {
		_ = d.out.command(getCommand(devicePath(id, segmentInputs)))
		return
	}

	if !hasProps {
		d.log.Debug("Device detail without properties", d.log.Field().String("device", id))
		return
	}
	for _, rule := range d.rules.ForDevice(id) {
		if _, ok := props[rule.Target]; !ok {
			continue
		}
		d.subscribe(id, rule.Target)
	}
}

func (d *discovery) inputList(r Route) {
	id := r.DeviceID()
	inputs, ok := r.ChildKeys()
	if id == "" || !ok {
		d.log.Debug("Input list without children", d.log.Field().String("path", r.Address.Path))
		return
	}
	d.tree.AddInputs(id, inputs)
	d.log.Info("Requesting data for console inputs (enable debug logging to trace data)",
		d.log.Field().String("device", id),
		d.log.Field().Int("inputs", len(inputs)))
	for _, in := range inputs {
		_ = d.out.command(getCommand(devicePath(id, segmentInputs, in)))
		_ = d.out.command(getCommand(devicePath(id, segmentInputs, in, "sends")))
	}
}
