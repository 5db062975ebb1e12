package console

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/leandrodaf/uad2midi/sdk/contracts"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Frame parse errors. The offending frame is dropped.
var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrMissingPath    = errors.New("frame has no path")
	ErrMissingData    = errors.New("frame has no data")
)

const (
	segmentDevices = "devices"
	segmentInputs  = "inputs"
	segmentValue   = "value"
)

var (
	pathExpr       = jp.C("path")
	dataExpr       = jp.C("data")
	childrenExpr   = jp.C("data").C("children")
	propertiesExpr = jp.C("data").C("properties")
)

// RouteKind classifies an inbound frame by the shape of its path.
type RouteKind int

const (
	RouteIgnored RouteKind = iota
	RouteDeviceList
	RouteDeviceDetail
	RouteInputList
	RouteValueChange
)

func (k RouteKind) String() string {
	switch k {
	case RouteDeviceList:
		return "device_list"
	case RouteDeviceDetail:
		return "device_detail"
	case RouteInputList:
		return "input_list"
	case RouteValueChange:
		return "value_change"
	default:
		return "ignored"
	}
}

// Address locates a value change. Path is always set; DeviceID and Property
// are set for scoped value changes.
type Address struct {
	Path     string
	DeviceID string
	Property string
}

// Route is a classified frame.
type Route struct {
	Kind     RouteKind
	Address  Address
	Segments []string

	doc any
}

// DeviceID returns the device segment of routes under /devices.
func (r Route) DeviceID() string {
	if len(r.Segments) > 1 && r.Segments[0] == segmentDevices {
		return r.Segments[1]
	}
	return ""
}

// ChildKeys returns the keys of data.children, sorted.
func (r Route) ChildKeys() ([]string, bool) {
	children, ok := childrenExpr.First(r.doc).(map[string]any)
	if !ok {
		return nil, false
	}
	keys := make([]string, 0, len(children))
	for k := range children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, true
}

// Properties returns data.properties as name to {type, value}.
func (r Route) Properties() (map[string]Property, bool) {
	raw, ok := propertiesExpr.First(r.doc).(map[string]any)
	if !ok {
		return nil, false
	}
	props := make(map[string]Property, len(raw))
	for name, v := range raw {
		p := Property{}
		if m, ok := v.(map[string]any); ok {
			p.Type, _ = m["type"].(string)
			p.Value, p.HasValue = scalarString(m["value"])
		}
		props[name] = p
	}
	return props, true
}

// Value returns the data field of a value change in its string form.
func (r Route) Value() (string, error) {
	v, ok := scalarString(dataExpr.First(r.doc))
	if !ok {
		return "", ErrMissingData
	}
	return v, nil
}

// Router classifies frames according to a rule dialect.
type Router struct {
	dialect contracts.Dialect
}

// NewRouter creates a router for dialect.
func NewRouter(dialect contracts.Dialect) *Router {
	return &Router{dialect: dialect}
}

// Route parses frame and classifies its path. Unrecognised shapes yield
// RouteIgnored without error.
func (rt *Router) Route(frame string) (Route, error) {
	doc, err := oj.ParseString(frame)
	if err != nil {
		return Route{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if _, ok := doc.(map[string]any); !ok {
		return Route{}, fmt.Errorf("%w: not a JSON object", ErrMalformedFrame)
	}
	path, ok := pathExpr.First(doc).(string)
	if !ok {
		return Route{}, ErrMissingPath
	}

	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	route := Route{
		Kind:     rt.classify(segments),
		Address:  Address{Path: path},
		Segments: segments,
		doc:      doc,
	}
	if route.Kind == RouteValueChange && rt.dialect == contracts.DialectScoped {
		route.Address.DeviceID = segments[1]
		route.Address.Property = segments[2]
	}
	return route, nil
}

func (rt *Router) classify(segments []string) RouteKind {
	n := len(segments)
	switch {
	case segments[0] != segmentDevices:
		return RouteIgnored
	case n == 1:
		return RouteDeviceList
	case n == 2:
		return RouteDeviceDetail
	}

	if rt.dialect == contracts.DialectScoped {
		if n == 4 && segments[3] == segmentValue {
			return RouteValueChange
		}
		return RouteIgnored
	}

	switch {
	case n == 3 && segments[2] == segmentInputs:
		return RouteInputList
	case segments[n-1] == segmentValue:
		return RouteValueChange
	default:
		return RouteIgnored
	}
}

// scalarString renders a decoded JSON scalar the way rules compare it.
// Integers keep their digits; fractional or exponent numbers render like a
// Java double, so 1.0 reads "1.0" and 1e21 reads "1.0E21".
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return formatDouble(t), true
	case json.Number:
		if strings.ContainsAny(string(t), ".eE") {
			if f, err := t.Float64(); err == nil {
				return formatDouble(f), true
			}
		}
		return t.String(), true
	case map[string]any, []any:
		return "", false
	default:
		return fmt.Sprint(t), true
	}
}

// formatDouble matches Java's Double.toString: plain notation with at least
// one fraction digit for magnitudes in [1e-3, 1e7), otherwise d.dddE<n>.
func formatDouble(f float64) string {
	abs := math.Abs(f)
	if abs == 0 || (abs >= 1e-3 && abs < 1e7) {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}

	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'E', -1, 64), "E")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	n, _ := strconv.Atoi(exp)
	return mantissa + "E" + strconv.Itoa(n)
}
