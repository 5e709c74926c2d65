package worker

import (
	"encoding/json"
	"fmt"

	"github.com/simumatik/drivermanager/protocol"
)

// envelope is the wire framing used by the process strategy: one JSON
// object per line, tag-dispatched the same way the in-process pipe
// dispatches on Go's static interface types.
type envelope struct {
	Tag     string          `json:"tag"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func encodeCommand(cmd protocol.WorkerCommand) ([]byte, error) {
	var env envelope
	var err error
	switch c := cmd.(type) {
	case protocol.AddVariables:
		env.Tag = "ADD_VARIABLES"
		env.Payload, err = json.Marshal(c)
	case protocol.UpdateCommand:
		env.Tag = "UPDATE"
		env.Payload, err = json.Marshal(c)
	case protocol.ExitCommand:
		env.Tag = "EXIT"
	default:
		return nil, fmt.Errorf("worker: unencodable command %T", cmd)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

func decodeCommand(line []byte) (protocol.WorkerCommand, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, err
	}
	switch env.Tag {
	case "ADD_VARIABLES":
		var c protocol.AddVariables
		if err := json.Unmarshal(env.Payload, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "UPDATE":
		var c protocol.UpdateCommand
		if err := json.Unmarshal(env.Payload, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "EXIT":
		return protocol.ExitCommand{}, nil
	default:
		return nil, fmt.Errorf("worker: unknown command tag %q", env.Tag)
	}
}

func encodeMessage(msg protocol.WorkerMessage) ([]byte, error) {
	var env envelope
	var err error
	switch m := msg.(type) {
	case protocol.Status:
		env.Tag = "STATUS"
		env.Payload, err = json.Marshal(m)
	case protocol.Info:
		env.Tag = "INFO"
		env.Payload, err = json.Marshal(m)
	case protocol.VarInfo:
		env.Tag = "VAR_INFO"
		env.Payload, err = json.Marshal(m)
	case protocol.UpdateMessage:
		env.Tag = "UPDATE"
		env.Payload, err = json.Marshal(m)
	default:
		return nil, fmt.Errorf("worker: unencodable message %T", msg)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

func decodeMessage(line []byte) (protocol.WorkerMessage, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, err
	}
	switch env.Tag {
	case "STATUS":
		var m protocol.Status
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case "INFO":
		var m protocol.Info
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case "VAR_INFO":
		var m protocol.VarInfo
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case "UPDATE":
		var m protocol.UpdateMessage
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("worker: unknown message tag %q", env.Tag)
	}
}
