package pktsim

// trace.go holds the reporting layer: terminal packet events and the
// dictionary that maps device ids to names, gathered during a run and
// serializable afterwards

import (
	"encoding/json"
	"github.com/iti/evt/vrtime"
	"gopkg.in/yaml.v3"
	"os"
	"path"
)

// NameType is an entry in a dictionary created for a trace
// that maps object id numbers to a (name,type) pair
type NameType struct {
	Name string
	Type string
}

// A PcktTrace records the terminal transition of one packet,
// saved for post-run analysis
type PcktTrace struct {
	Time    float64 // time in float64
	Ticks   int64   // ticks variable of time
	Seq     int64   // sequence number of the packet
	Device  string  // device where the packet terminated
	Kind    string  // packet classification
	Outcome string  // "delivered", or the drop reason
	Hops    int     // accepted hops taken
	RTTms   float64 // delivery latency in ms, zero unless delivered
}

// TraceManager gathers information about an execution of a simulation
// model.  By testing the InUse flag we can inhibit the activity of
// gathering a trace when we don't want it, while embedding calls to its
// methods everywhere we need them when it is
type TraceManager struct {
	// experiment uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// text name associated with each objID
	NameByID map[int]NameType `json:"namebyid" yaml:"namebyid"`

	// all trace records for this experiment, keyed by packet sequence
	Traces map[int64][]PcktTrace `json:"traces" yaml:"traces"`
}

// CreateTraceManager is a constructor.  It saves the name of the
// experiment and a flag indicating whether the trace manager is active
func CreateTraceManager(ExpName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = ExpName
	tm.NameByID = make(map[int]NameType)
	tm.Traces = make(map[int64][]PcktTrace)
	return tm
}

// Active tells the caller whether the Trace Manager is actively being used
func (tm *TraceManager) Active() bool {
	return tm.InUse
}

// AddTrace creates a record of the trace using its calling arguments, and stores it
func (tm *TraceManager) AddTrace(seq int64, trace PcktTrace) {
	// return if we aren't using the trace manager
	if !tm.InUse {
		return
	}

	_, present := tm.Traces[seq]
	if !present {
		tm.Traces[seq] = make([]PcktTrace, 0)
	}
	tm.Traces[seq] = append(tm.Traces[seq], trace)
}

// AddName is used to add an element to the id -> (name,type) dictionary for the trace file
func (tm *TraceManager) AddName(id int, name string, objDesc string) {
	if tm.InUse {
		_, present := tm.NameByID[id]
		if present {
			panic("duplicated id in AddName")
		}
		tm.NameByID[id] = NameType{Name: name, Type: objDesc}
	}
}

// WriteToFile stores the Traces struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name
func (tm *TraceManager) WriteToFile(filename string) bool {
	if !tm.InUse {
		return false
	}
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*tm)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*tm, "", "\t")
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
	return true
}

// AddPcktTrace creates a record of a packet's terminal transition using
// its calling arguments, and stores it
func AddPcktTrace(tm *TraceManager, vrt vrtime.Time, pckt *Packet) {
	if !tm.InUse {
		return
	}

	pt := PcktTrace{
		Time:   vrt.Seconds(),
		Ticks:  vrt.Ticks(),
		Seq:    pckt.Seq,
		Device: pckt.Path[len(pckt.Path)-1],
		Kind:   pcktKindToStr(pckt.Kind),
		Hops:   len(pckt.Path) - 1,
	}
	if pckt.State == Delivered {
		pt.Outcome = "delivered"
		pt.RTTms = (pckt.DeliveredAt - pckt.CreatedAt) * 1e3
	} else {
		pt.Outcome = dropReasonToStr(pckt.Reason)
	}

	tm.AddTrace(pckt.Seq, pt)
}
