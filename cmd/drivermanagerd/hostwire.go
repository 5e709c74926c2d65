package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/simumatik/drivermanager/protocol"
)

// The daemon binary's host transport: protocol.HostCommand and
// protocol.HostFrame framed as newline-delimited JSON over stdio, the
// same tag-dispatch shape the worker package uses for its subprocess
// boundary.
type envelope struct {
	Tag     string          `json:"tag"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func decodeHostCommand(line []byte) (protocol.HostCommand, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, err
	}
	switch env.Tag {
	case "SETUP_DRIVERS":
		return decodeSetupDrivers(env.Payload)
	case "UPDATES":
		var c protocol.Updates
		if err := json.Unmarshal(env.Payload, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "CLEAN":
		return protocol.Clean{}, nil
	default:
		return nil, fmt.Errorf("hostwire: unknown command tag %q", env.Tag)
	}
}

// decodeSetupDrivers walks the payload object with a json.Decoder so the
// host-supplied entry order survives into SetupDrivers.Entries; a plain
// map unmarshal would randomize it, and provisioning is order-sensitive.
func decodeSetupDrivers(payload []byte) (protocol.SetupDrivers, error) {
	var cmd protocol.SetupDrivers
	dec := json.NewDecoder(bytes.NewReader(payload))
	if err := expectDelim(dec, json.Delim('{')); err != nil {
		return cmd, err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return cmd, err
		}
		handle, _ := tok.(string)
		var raw struct {
			Driver string          `json:"DRIVER"`
			Setup  json.RawMessage `json:"SETUP"`
		}
		if err := dec.Decode(&raw); err != nil {
			return cmd, err
		}
		setup, err := decodeDriverSetup(raw.Setup)
		if err != nil {
			return cmd, err
		}
		cmd.Entries = append(cmd.Entries, protocol.SetupEntry{
			Handle: handle,
			Spec:   protocol.DriverSpec{Class: raw.Driver, Setup: setup},
		})
	}
	return cmd, nil
}

func decodeDriverSetup(payload json.RawMessage) (protocol.DriverSetup, error) {
	var setup protocol.DriverSetup
	if len(payload) == 0 {
		return setup, nil
	}
	var raw struct {
		Parameters map[string]interface{} `json:"parameters"`
		Variables  json.RawMessage        `json:"variables"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return setup, err
	}
	setup.Parameters = raw.Parameters
	if len(raw.Variables) == 0 || string(raw.Variables) == "null" {
		return setup, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw.Variables))
	if err := expectDelim(dec, json.Delim('{')); err != nil {
		return setup, err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return setup, err
		}
		varID, _ := tok.(string)
		var data map[string]interface{}
		if err := dec.Decode(&data); err != nil {
			return setup, err
		}
		spec := protocol.VariableSpec{Parameters: data}
		if h, ok := data["handle"].(string); ok {
			spec.Handle = h
		}
		setup.Variables = append(setup.Variables, protocol.VariableEntry{ID: varID, Spec: spec})
	}
	return setup, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("hostwire: expected %v, got %v", want, tok)
	}
	return nil
}

func encodeHostFrame(frame protocol.HostFrame) ([]byte, error) {
	var env envelope
	var err error
	switch f := frame.(type) {
	case protocol.SetupDriversReply:
		env.Tag = "SETUP_DRIVERS"
		env.Payload, err = mustMarshal(f)
	case protocol.CleanReply:
		env.Tag = "CLEAN"
		env.Payload, err = mustMarshal(f)
	case protocol.StatusFrame:
		env.Tag = "STATUS"
		env.Payload, err = mustMarshal(f)
	case protocol.InfoFrame:
		env.Tag = "INFO"
		env.Payload, err = mustMarshal(f)
	case protocol.VarInfoFrame:
		env.Tag = "VAR_INFO"
		env.Payload, err = mustMarshal(f)
	case protocol.UpdatesFrame:
		env.Tag = "UPDATES"
		env.Payload, err = mustMarshal(f)
	case protocol.StatsFrame:
		env.Tag = "STATS"
		env.Payload, err = mustMarshal(f)
	default:
		return nil, fmt.Errorf("hostwire: unencodable frame %T", frame)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

func mustMarshal(v interface{}) (json.RawMessage, error) {
	return json.Marshal(v)
}

// pumpStdin reads newline-delimited host commands from r and forwards
// them to out until r is exhausted. Lines that fail to decode are skipped.
func pumpStdin(r io.Reader, out chan<- protocol.HostCommand) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		cmd, err := decodeHostCommand(line)
		if err != nil {
			continue
		}
		out <- cmd
	}
}

// pumpStdout writes every outbound frame on in to w as a JSON line.
func pumpStdout(w io.Writer, in <-chan protocol.HostFrame) {
	bw := bufio.NewWriter(w)
	defer bw.Flush()
	for frame := range in {
		line, err := encodeHostFrame(frame)
		if err != nil {
			continue
		}
		bw.Write(line)
		bw.WriteByte('\n')
		bw.Flush()
	}
}
