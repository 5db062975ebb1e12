package console

import (
	"testing"

	"github.com/leandrodaf/uad2midi/sdk/contracts"
	"github.com/stretchr/testify/assert"
)

func newTestDiscovery(t *testing.T, rules *RuleTable) (*discovery, *recorder) {
	t.Helper()
	log, _ := newTestLogger(t)
	rec := &recorder{}
	return &discovery{
		rules: rules,
		tree:  NewDeviceTree(),
		subs:  NewSubscriptionRegistry(),
		out:   rec,
		log:   log,
	}, rec
}

func TestDiscoveryBeginAbsolute(t *testing.T) {
	rules := mustRules(t, contracts.DialectAbsolute,
		`{"path":"/devices/0/inputs/0/Mute/value","data":"true","midiCommand":144}`,
		`{"path":"/devices/0/inputs/0/Mute/value","data":"false","midiCommand":128}`,
		`{"path":"/devices/0/inputs/1/Solo/value","midiCommand":144}`,
	)
	d, rec := newTestDiscovery(t, rules)

	d.begin()
	d.begin()

	assert.Equal(t, []string{
		"subscribe /devices/0/inputs/0/Mute/value",
		"subscribe /devices/0/inputs/1/Solo/value",
		"get /devices",
		"get /devices",
	}, rec.commands)
	assert.Equal(t, 2, d.subs.Len())
}

func TestDiscoveryBeginScoped(t *testing.T) {
	rules := mustRules(t, contracts.DialectScoped, `{"deviceId":"0","property":"Mute","midiCommand":144}`)
	d, rec := newTestDiscovery(t, rules)

	d.begin()

	assert.Equal(t, []string{"get /devices"}, rec.commands)
}

func TestDiscoveryDeviceList(t *testing.T) {
	d, rec := newTestDiscovery(t, NewRuleTable(contracts.DialectAbsolute))

	d.deviceList(mustRoute(t, contracts.DialectAbsolute,
		`{"path":"/devices","data":{"children":{"1":{},"0":{}}}}`))

	assert.Equal(t, []string{"get /devices/0", "get /devices/1"}, rec.commands)
	assert.Equal(t, []string{"0", "1"}, d.tree.DeviceIDs())

	rec.commands = nil
	d.deviceList(mustRoute(t, contracts.DialectAbsolute, `{"path":"/devices","data":"oops"}`))
	assert.Empty(t, rec.commands)
}

func TestDiscoveryDeviceDetailAbsolute(t *testing.T) {
	d, rec := newTestDiscovery(t, NewRuleTable(contracts.DialectAbsolute))

	d.deviceDetail(mustRoute(t, contracts.DialectAbsolute,
		`{"path":"/devices/0","data":{"properties":{"DeviceName":{"type":"string","value":"Apollo Twin"}}}}`))

	assert.Equal(t, []string{"get /devices/0/inputs"}, rec.commands)
	dev, ok := d.tree.Lookup("0")
	assert.True(t, ok)
	assert.Equal(t, "Apollo Twin", dev.Properties["DeviceName"].Value)
}

func TestDiscoveryDeviceDetailScoped(t *testing.T) {
	rules := mustRules(t, contracts.DialectScoped,
		`{"deviceId":"0","property":"Mute","value":"true","midiCommand":144}`,
		`{"deviceId":"0","property":"Mute","value":"false","midiCommand":128}`,
		`{"deviceId":"0","property":"Missing","midiCommand":144}`,
		`{"deviceId":"1","property":"Mute","midiCommand":144}`,
		`{"deviceId":"0","property":"Dim","response":"get /devices"}`,
	)
	d, rec := newTestDiscovery(t, rules)
	frame := `{"path":"/devices/0","data":{"properties":{"Mute":{"type":"bool","value":false},"Dim":{"type":"bool","value":true}}}}`

	d.deviceDetail(mustRoute(t, contracts.DialectScoped, frame))
	d.deviceDetail(mustRoute(t, contracts.DialectScoped, frame))

	assert.Equal(t, []string{
		"subscribe 0/Mute",
		"subscribe 0/Dim",
	}, rec.commands)
	assert.Equal(t, 2, d.subs.Len())

	dev, _ := d.tree.Lookup("0")
	assert.Equal(t, Property{Type: "bool", Value: "false", HasValue: true}, dev.Properties["Mute"])
}

func TestDiscoveryDeviceDetailScopedWithoutProperties(t *testing.T) {
	rules := mustRules(t, contracts.DialectScoped, `{"deviceId":"0","property":"Mute","midiCommand":144}`)
	d, rec := newTestDiscovery(t, rules)

	d.deviceDetail(mustRoute(t, contracts.DialectScoped, `{"path":"/devices/0","data":{}}`))

	assert.Empty(t, rec.commands)
}

func TestDiscoveryInputList(t *testing.T) {
	d, rec := newTestDiscovery(t, NewRuleTable(contracts.DialectAbsolute))

	d.inputList(mustRoute(t, contracts.DialectAbsolute,
		`{"path":"/devices/0/inputs","data":{"children":{"0":{},"1":{}}}}`))

	assert.Equal(t, []string{
		"get /devices/0/inputs/0",
		"get /devices/0/inputs/0/sends",
		"get /devices/0/inputs/1",
		"get /devices/0/inputs/1/sends",
	}, rec.commands)
	dev, _ := d.tree.Lookup("0")
	assert.Len(t, dev.Inputs, 2)
}

func TestSubscriptionRegistry(t *testing.T) {
	r := NewSubscriptionRegistry()

	assert.True(t, r.Add("0", "Mute"))
	assert.False(t, r.Add("0", "Mute"))
	assert.True(t, r.Add("1", "Mute"))
	assert.True(t, r.Add("", "/devices/0/Mute/value"))
	assert.False(t, r.Add("", "/devices/0/Mute/value"))
	assert.Equal(t, 3, r.Len())
}
