package console

import (
	"github.com/leandrodaf/uad2midi/sdk/contracts"
)

// dispatcher fires the actions of every rule matching a value change.
type dispatcher struct {
	rules   *RuleTable
	tree    *DeviceTree
	sink    contracts.MIDISender
	out     commander
	log     contracts.Logger
	metrics *Metrics
}

// valueChange evaluates r against the whole rule table and returns the
// number of rules fired. Sink and write failures are logged per rule and do
// not stop the remaining rules.
func (d *dispatcher) valueChange(r Route) (int, error) {
	value, err := r.Value()
	if err != nil {
		return 0, err
	}
	if r.Address.DeviceID != "" && !d.tree.UpdateValue(r.Address.DeviceID, r.Address.Property, value) {
		d.log.Debug("Value change for undiscovered device",
			d.log.Field().String("device", r.Address.DeviceID))
	}

	matched := d.rules.Match(r.Address, value)
	for _, rule := range matched {
		d.metrics.RulesFired.WithLabelValues(rule.Action.kind()).Inc()

		switch action := rule.Action.(type) {
		case MIDIAction:
			d.log.Debug("Sending MIDI message",
				d.log.Field().String("path", r.Address.Path),
				d.log.Field().String("message", action.Message.String()))
			if err := d.sink.Send(action.Message); err != nil {
				d.metrics.MIDIErrors.Inc()
				d.log.Error("Error while sending MIDI message",
					d.log.Field().String("path", r.Address.Path),
					d.log.Field().String("message", action.Message.String()),
					d.log.Field().Error("error", err))
			}
		case ResponseAction:
			_ = d.out.command(action.Command)
		}
	}
	return len(matched), nil
}
