package pktsim

// desc.go holds the serializable description of a topology.  The desc
// structs are pointer-free so they serialize cleanly; BuildTopo (topo.go)
// turns a TopoCfg into the run-time representation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
	"path"
	"strings"
)

// An IntrfcDesc describes a network interface embedded in a device.
// Faces names the network the interface interacts with
type IntrfcDesc struct {
	Name   string `json:"name" yaml:"name"`
	Device string `json:"device" yaml:"device"`
	Faces  string `json:"faces" yaml:"faces"`
	MAC    string `json:"mac,omitempty" yaml:"mac,omitempty"`
}

// A NetworkDesc describes one of the topology's named subnetworks
type NetworkDesc struct {
	Name      string `json:"name" yaml:"name"`
	MediaType string `json:"mediatype" yaml:"mediatype"`
}

// A RouterDesc describes a router and the interfaces it holds
type RouterDesc struct {
	Name       string       `json:"name" yaml:"name"`
	Model      string       `json:"model,omitempty" yaml:"model,omitempty"`
	Interfaces []IntrfcDesc `json:"interfaces" yaml:"interfaces"`
}

// A SwitchDesc describes a switch and the interfaces it holds
type SwitchDesc struct {
	Name       string       `json:"name" yaml:"name"`
	Interfaces []IntrfcDesc `json:"interfaces" yaml:"interfaces"`
}

// A HostDesc describes an end device and the interfaces it holds
type HostDesc struct {
	Name       string       `json:"name" yaml:"name"`
	Interfaces []IntrfcDesc `json:"interfaces" yaml:"interfaces"`
}

// A LinkDesc describes a point-to-point connection between two named
// interfaces.  Bandwidth (Mbits/sec) is descriptive metadata; the
// simulation does not derive delay from it
type LinkDesc struct {
	DevA      string  `json:"deva" yaml:"deva"`
	DevB      string  `json:"devb" yaml:"devb"`
	IntrfcA   string  `json:"intrfca" yaml:"intrfca"`
	IntrfcB   string  `json:"intrfcb" yaml:"intrfcb"`
	Bandwidth float64 `json:"bandwidth,omitempty" yaml:"bandwidth,omitempty"`
}

// The TopoCfg struct gives the highest level structure of the topology,
// is a list of networks and the devices connected through them
type TopoCfg struct {
	Name     string        `json:"name" yaml:"name"`
	Networks []NetworkDesc `json:"networks" yaml:"networks"`
	Routers  []RouterDesc  `json:"routers" yaml:"routers"`
	Switches []SwitchDesc  `json:"switches" yaml:"switches"`
	Hosts    []HostDesc    `json:"hosts" yaml:"hosts"`
	Links    []LinkDesc    `json:"links" yaml:"links"`

	// counter used to generate unique default interface names
	nxtIntrfc int
}

// CreateTopoCfg is an initialization constructor.
// Its output struct has methods for integrating data
func CreateTopoCfg(name string) *TopoCfg {
	tc := new(TopoCfg)
	tc.Name = name
	tc.Networks = make([]NetworkDesc, 0)
	tc.Routers = make([]RouterDesc, 0)
	tc.Switches = make([]SwitchDesc, 0)
	tc.Hosts = make([]HostDesc, 0)
	tc.Links = make([]LinkDesc, 0)
	return tc
}

// AddNetwork includes a named subnetwork in the configuration
func (tc *TopoCfg) AddNetwork(name, mediaType string) {
	tc.Networks = append(tc.Networks, NetworkDesc{Name: name, MediaType: mediaType})
}

// AddRouter includes a router in the configuration
func (tc *TopoCfg) AddRouter(name, model string) {
	tc.Routers = append(tc.Routers, RouterDesc{Name: name, Model: model, Interfaces: make([]IntrfcDesc, 0)})
}

// AddSwitch includes a switch in the configuration
func (tc *TopoCfg) AddSwitch(name string) {
	tc.Switches = append(tc.Switches, SwitchDesc{Name: name, Interfaces: make([]IntrfcDesc, 0)})
}

// AddHost includes a host in the configuration
func (tc *TopoCfg) AddHost(name string) {
	tc.Hosts = append(tc.Hosts, HostDesc{Name: name, Interfaces: make([]IntrfcDesc, 0)})
}

// DefaultIntrfcName generates a unique default name for an interface
// on the named device
func (tc *TopoCfg) DefaultIntrfcName(device string) string {
	tc.nxtIntrfc += 1
	return fmt.Sprintf("intrfc@%s[%d]", device, tc.nxtIntrfc)
}

// deviceKindStr returns the kind of a named device as a string, with a
// flag reporting whether the device appears in the configuration at all
func (tc *TopoCfg) deviceKindStr(name string) (string, bool) {
	for idx := range tc.Routers {
		if tc.Routers[idx].Name == name {
			return "Router", true
		}
	}
	for idx := range tc.Switches {
		if tc.Switches[idx].Name == name {
			return "Switch", true
		}
	}
	for idx := range tc.Hosts {
		if tc.Hosts[idx].Name == name {
			return "Host", true
		}
	}
	return "", false
}

// addIntrfc appends an interface desc to the named device's list
func (tc *TopoCfg) addIntrfc(device string, id IntrfcDesc) {
	for idx := range tc.Routers {
		if tc.Routers[idx].Name == device {
			tc.Routers[idx].Interfaces = append(tc.Routers[idx].Interfaces, id)
			return
		}
	}
	for idx := range tc.Switches {
		if tc.Switches[idx].Name == device {
			tc.Switches[idx].Interfaces = append(tc.Switches[idx].Interfaces, id)
			return
		}
	}
	for idx := range tc.Hosts {
		if tc.Hosts[idx].Name == device {
			tc.Hosts[idx].Interfaces = append(tc.Hosts[idx].Interfaces, id)
			return
		}
	}
}

// ConnectDevs joins two already-declared devices with a link through the
// named network, creating a default-named interface on each side.
// Both devices must exist; the network must have been declared
func (tc *TopoCfg) ConnectDevs(devA, devB, faces string, bandwidth float64) error {
	errList := []error{}

	if _, present := tc.deviceKindStr(devA); !present {
		errList = append(errList, fmt.Errorf("connect names unknown device %s", devA))
	}
	if _, present := tc.deviceKindStr(devB); !present {
		errList = append(errList, fmt.Errorf("connect names unknown device %s", devB))
	}

	netKnown := false
	for _, net := range tc.Networks {
		if net.Name == faces {
			netKnown = true
			break
		}
	}
	if !netKnown {
		errList = append(errList, fmt.Errorf("connect names unknown network %s", faces))
	}

	if len(errList) > 0 {
		return ReportErrs(errList)
	}

	intrfcA := IntrfcDesc{Name: tc.DefaultIntrfcName(devA), Device: devA, Faces: faces}
	intrfcB := IntrfcDesc{Name: tc.DefaultIntrfcName(devB), Device: devB, Faces: faces}
	tc.addIntrfc(devA, intrfcA)
	tc.addIntrfc(devB, intrfcB)

	tc.Links = append(tc.Links,
		LinkDesc{DevA: devA, DevB: devB, IntrfcA: intrfcA.Name, IntrfcB: intrfcB.Name, Bandwidth: bandwidth})
	return nil
}

// WriteToFile stores the TopoCfg struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name
func (tc *TopoCfg) WriteToFile(filename string) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*tc)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*tc, "", "\t")
	}

	if merr != nil {
		panic(merr)
	}

	f, cerr := os.Create(filename)
	if cerr != nil {
		panic(cerr)
	}
	_, werr := f.WriteString(string(bytes[:]))
	if werr != nil {
		panic(werr)
	}
	f.Close()

	return werr
}

// ReadTopoCfg deserializes a byte slice holding a representation of a
// TopoCfg struct.  If the input argument of dict (those bytes) is empty,
// the file whose name is given is read to acquire them.  Fields not
// declared on the desc structs are rejected rather than absorbed silently
func ReadTopoCfg(filename string, useYAML bool, dict []byte) (*TopoCfg, error) {
	var err error

	// if the dict slice of bytes is empty we get them from the file whose name is an argument
	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	example := TopoCfg{}

	if useYAML {
		dcdr := yaml.NewDecoder(bytes.NewReader(dict))
		dcdr.KnownFields(true)
		err = dcdr.Decode(&example)
	} else {
		dcdr := json.NewDecoder(bytes.NewReader(dict))
		dcdr.DisallowUnknownFields()
		err = dcdr.Decode(&example)
	}

	if err != nil {
		return nil, err
	}

	return &example, nil
}

// ReportErrs transforms a list of errors and transforms the non-nil ones into a single error
func ReportErrs(errs []error) error {
	err_msg := make([]string, 0)
	for _, err := range errs {
		if err != nil {
			err_msg = append(err_msg, err.Error())
		}
	}
	if len(err_msg) == 0 {
		return nil
	}

	return errors.New(strings.Join(err_msg, ","))
}
