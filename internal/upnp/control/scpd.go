package control

import (
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-upnp/internal/upnp"
	"github.com/nerrad567/gray-logic-upnp/internal/upnp/description"
)

// Direction of an action argument.
type Direction string

// Argument directions.
const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Action is one entry of a service's actionList.
type Action struct {
	Name      string
	Arguments []Argument
}

// Argument is one action argument.
type Argument struct {
	Name                 string
	Direction            Direction
	RelatedStateVariable string
}

// In returns the input arguments in declaration order.
func (a Action) In() []Argument {
	return a.filter(DirectionIn)
}

// Out returns the output arguments in declaration order.
func (a Action) Out() []Argument {
	return a.filter(DirectionOut)
}

func (a Action) filter(dir Direction) []Argument {
	var out []Argument
	for _, arg := range a.Arguments {
		if arg.Direction == dir {
			out = append(out, arg)
		}
	}
	return out
}

// StateVariable is one entry of a service's serviceStateTable.
type StateVariable struct {
	Name          string
	DataType      string
	SendEvents    bool
	Multicast     bool
	DefaultValue  string
	AllowedValues []string
	Range         *ValueRange
}

// ValueRange is an allowedValueRange. Values are kept as declared because
// their type depends on DataType.
type ValueRange struct {
	Minimum string
	Maximum string
	Step    string
}

// ParseSCPD extracts the actions and state variables of a service
// description. Elements are matched in the document's root namespace so
// that SCPDs served without the standard namespace still parse.
func ParseSCPD(doc *description.Document) ([]Action, []StateVariable, error) {
	if doc == nil || doc.Root == nil || doc.Root.Local() != "scpd" {
		return nil, nil, fmt.Errorf("%w: missing scpd root element", upnp.ErrMalformedDescription)
	}
	ns := doc.Root.Name.Space

	var actions []Action
	for _, el := range doc.Root.ChildrenNS(ns, "actionList", "action") {
		name, _ := el.ChildText("name")
		if name == "" {
			return nil, nil, fmt.Errorf("%w: action without name", upnp.ErrMalformedDescription)
		}
		action := Action{Name: name}
		for _, argEl := range el.ChildrenNS(ns, "argumentList", "argument") {
			arg, err := parseArgument(argEl)
			if err != nil {
				return nil, nil, fmt.Errorf("action %s: %w", name, err)
			}
			action.Arguments = append(action.Arguments, arg)
		}
		actions = append(actions, action)
	}

	var variables []StateVariable
	for _, el := range doc.Root.ChildrenNS(ns, "serviceStateTable", "stateVariable") {
		v, err := parseStateVariable(el)
		if err != nil {
			return nil, nil, err
		}
		variables = append(variables, v)
	}

	return actions, variables, nil
}

func parseArgument(el *description.Element) (Argument, error) {
	arg := Argument{}
	arg.Name, _ = el.ChildText("name")
	if arg.Name == "" {
		return Argument{}, fmt.Errorf("%w: argument without name", upnp.ErrMalformedDescription)
	}
	dir, _ := el.ChildText("direction")
	switch Direction(strings.ToLower(dir)) {
	case DirectionIn:
		arg.Direction = DirectionIn
	case DirectionOut:
		arg.Direction = DirectionOut
	default:
		return Argument{}, fmt.Errorf("%w: argument %s has direction %q", upnp.ErrMalformedDescription, arg.Name, dir)
	}
	arg.RelatedStateVariable, _ = el.ChildText("relatedStateVariable")
	return arg, nil
}

func parseStateVariable(el *description.Element) (StateVariable, error) {
	v := StateVariable{}
	v.Name, _ = el.ChildText("name")
	if v.Name == "" {
		return StateVariable{}, fmt.Errorf("%w: state variable without name", upnp.ErrMalformedDescription)
	}
	v.DataType, _ = el.ChildText("dataType")
	v.DefaultValue, _ = el.ChildText("defaultValue")

	// sendEvents defaults to "yes" in UDA 1.0.
	v.SendEvents = true
	if s, ok := el.Attr("sendEvents"); ok {
		v.SendEvents = strings.EqualFold(s, "yes")
	}
	if s, ok := el.Attr("multicast"); ok {
		v.Multicast = strings.EqualFold(s, "yes")
	}

	if list := el.Child("allowedValueList"); list != nil {
		for _, c := range list.Children {
			if c.Local() == "allowedValue" {
				v.AllowedValues = append(v.AllowedValues, c.Text())
			}
		}
	}
	if r := el.Child("allowedValueRange"); r != nil {
		v.Range = &ValueRange{}
		v.Range.Minimum, _ = r.ChildText("minimum")
		v.Range.Maximum, _ = r.ChildText("maximum")
		v.Range.Step, _ = r.ChildText("step")
	}
	return v, nil
}
