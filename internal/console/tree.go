package console

import "sort"

// Property is the last known state of a device property.
type Property struct {
	Type     string
	Value    string
	HasValue bool
}

// Device is what discovery has learned about one console device.
type Device struct {
	ID         string
	Inputs     map[string]struct{}
	Properties map[string]Property
}

// DeviceTree holds the devices discovered during one connection.
type DeviceTree struct {
	devices map[string]*Device
}

// NewDeviceTree returns an empty tree.
func NewDeviceTree() *DeviceTree {
	return &DeviceTree{devices: make(map[string]*Device)}
}

// Device returns the device with id, creating it if needed.
func (t *DeviceTree) Device(id string) *Device {
	d, ok := t.devices[id]
	if !ok {
		d = &Device{
			ID:         id,
			Inputs:     make(map[string]struct{}),
			Properties: make(map[string]Property),
		}
		t.devices[id] = d
	}
	return d
}

// Lookup returns the device with id if it has been discovered.
func (t *DeviceTree) Lookup(id string) (*Device, bool) {
	d, ok := t.devices[id]
	return d, ok
}

// SetProperties merges a property snapshot into the device.
func (t *DeviceTree) SetProperties(id string, props map[string]Property) {
	d := t.Device(id)
	for name, p := range props {
		d.Properties[name] = p
	}
}

// UpdateValue records a value change on a discovered device. Changes for
// devices discovery has not seen are ignored and report false.
func (t *DeviceTree) UpdateValue(id, property, value string) bool {
	d, ok := t.devices[id]
	if !ok {
		return false
	}
	p := d.Properties[property]
	p.Value, p.HasValue = value, true
	d.Properties[property] = p
	return true
}

// AddInputs records input ids for a device.
func (t *DeviceTree) AddInputs(id string, inputs []string) {
	d := t.Device(id)
	for _, in := range inputs {
		d.Inputs[in] = struct{}{}
	}
}

// DeviceIDs returns the known device ids, sorted.
func (t *DeviceTree) DeviceIDs() []string {
	ids := make([]string, 0, len(t.devices))
	for id := range t.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of known devices.
func (t *DeviceTree) Len() int { return len(t.devices) }

type subscriptionKey struct {
	deviceID string
	target   string
}

// SubscriptionRegistry remembers what has been subscribed on the current
// connection.
type SubscriptionRegistry struct {
	seen map[subscriptionKey]struct{}
}

// NewSubscriptionRegistry returns an empty registry.
func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{seen: make(map[subscriptionKey]struct{})}
}

// Add registers the pair and reports whether it was new. deviceID is empty
// for absolute paths.
func (r *SubscriptionRegistry) Add(deviceID, target string) bool {
	key := subscriptionKey{deviceID: deviceID, target: target}
	if _, ok := r.seen[key]; ok {
		return false
	}
	r.seen[key] = struct{}{}
	return true
}

// Len returns the number of registered subscriptions.
func (r *SubscriptionRegistry) Len() int { return len(r.seen) }
