package status

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// SwitchValue is one named switch with its reported binary state.
type SwitchValue struct {
	Name  string
	Value int
}

func (sv SwitchValue) IsOn() bool {
	return sv.Value != 0
}

// ParseSwitchMap decodes a status mapping from a response or event payload.
// Both observed shapes are accepted: a wrapping envelope like
// {"status":"success","data":{"Alpha":0,...}} and the bare {"Alpha":0,...}
// variant. Key order of the json object is kept, it is the display order.
func ParseSwitchMap(data []byte) ([]SwitchValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read status payload")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("status payload is not a json object")
	}

	var bare []SwitchValue
	var wrapped []SwitchValue
	haveWrapped := false

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(err, "failed to read status payload key")
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, errors.Errorf("unexpected token in status payload: %v", keyTok)
		}

		if key == "data" {
			inner, err := parseSwitchObject(dec)
			if err != nil {
				return nil, errors.Wrap(err, "failed to parse data object")
			}
			wrapped = inner
			haveWrapped = true
			continue
		}

		valTok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read value of %s", key)
		}
		sv, isSwitch, err := switchValueFromToken(key, valTok)
		if err != nil {
			return nil, err
		}
		if isSwitch {
			bare = append(bare, sv)
			continue
		}
		if delim, isDelim := valTok.(json.Delim); isDelim {
			if err := skipComposite(dec, delim); err != nil {
				return nil, errors.Wrapf(err, "failed to skip value of %s", key)
			}
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, errors.Wrap(err, "malformed status payload")
	}

	if haveWrapped {
		return wrapped, nil
	}
	return bare, nil
}

// parseSwitchObject reads the value following a "data" key. A null value is
// allowed and yields no switches (error envelopes carry "data":null).
func parseSwitchObject(dec *json.Decoder) ([]SwitchValue, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		// null or scalar, nothing to merge
		return nil, nil
	}
	if delim != '{' {
		return nil, skipComposite(dec, delim)
	}

	switches := []SwitchValue{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, errors.Errorf("unexpected token in data object: %v", keyTok)
		}
		valTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		sv, isSwitch, err := switchValueFromToken(key, valTok)
		if err != nil {
			return nil, err
		}
		if !isSwitch {
			return nil, errors.Errorf("switch %s carries a non binary value", key)
		}
		switches = append(switches, sv)
	}
	_, err = dec.Token()
	return switches, err
}

func switchValueFromToken(key string, tok json.Token) (sv SwitchValue, isSwitch bool, err error) {
	switch v := tok.(type) {
	case json.Number:
		intVal, convErr := v.Int64()
		if convErr != nil {
			err = errors.Wrapf(convErr, "switch %s value is not an integer", key)
			return
		}
		sv = SwitchValue{Name: key, Value: int(intVal)}
		isSwitch = true
	case bool:
		sv = SwitchValue{Name: key}
		if v {
			sv.Value = 1
		}
		isSwitch = true
	}

	return
}

// skipComposite consumes tokens until the object or array opened by delim is
// balanced again.
func skipComposite(dec *json.Decoder, delim json.Delim) error {
	if delim != '{' && delim != '[' {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
	}
	return nil
}

// MarshalSwitchMap renders switches as a json object keeping their order.
// encoding/json maps would reorder keys, which breaks the display order
// contract, so the object is assembled by hand.
func MarshalSwitchMap(switches []SwitchValue) []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for ix, sv := range switches {
		if ix > 0 {
			buf.WriteByte(',')
		}
		name, _ := json.Marshal(sv.Name)
		buf.Write(name)
		buf.WriteByte(':')
		if sv.Value != 0 {
			buf.WriteByte('1')
		} else {
			buf.WriteByte('0')
		}
	}
	buf.WriteByte('}')
	return buf.Bytes()
}
