package xmlrpc

import (
	"encoding/base64"
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

func nextTag(d *xml.Decoder) (xml.StartElement, error) {
	for {
		token, err := d.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		if elem, ok := token.(xml.StartElement); ok {
			return elem, nil
		}
	}
}

func expectNextTag(d *xml.Decoder, name string) (xml.StartElement, error) {
	tag, err := nextTag(d)
	if err != nil {
		return xml.StartElement{}, err
	}
	if tag.Name.Local != name {
		return xml.StartElement{}, errors.Errorf("expected <%s>, found <%s>", name, tag.Name.Local)
	}
	return tag, nil
}

// skipTo consumes tokens up to and including the end tag of name.
func skipTo(d *xml.Decoder, name string) error {
	for {
		token, err := d.Token()
		if err != nil {
			return err
		}
		if end, ok := token.(xml.EndElement); ok && end.Name.Local == name {
			return nil
		}
	}
}

// readText returns the character data of the current element and consumes
// its end tag.
func readText(d *xml.Decoder) (string, error) {
	var sb strings.Builder
	for {
		token, err := d.Token()
		if err != nil {
			return "", err
		}
		switch t := token.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			return sb.String(), nil
		case xml.StartElement:
			return "", errors.Errorf("unexpected <%s> in text", t.Name.Local)
		}
	}
}

// parseValue parses a value after its <value> tag has been read. On
// success the closing </value> has been consumed too.
func parseValue(d *xml.Decoder) (interface{}, error) {
	var text strings.Builder
	for {
		token, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			v, err := parseTyped(d, t.Name.Local)
			if err != nil {
				return nil, err
			}
			if err := skipTo(d, "value"); err != nil {
				return nil, err
			}
			return v, nil
		case xml.EndElement:
			// A value without a type element is a string.
			return text.String(), nil
		}
	}
}

func parseTyped(d *xml.Decoder, kind string) (interface{}, error) {
	switch kind {
	case "boolean":
		s, err := readText(d)
		if err != nil {
			return nil, err
		}
		switch strings.TrimSpace(s) {
		case "0":
			return false, nil
		case "1":
			return true, nil
		}
		return nil, errors.Errorf("boolean: invalid value %q", s)
	case "i4", "int":
		s, err := readText(d)
		if err != nil {
			return nil, err
		}
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return nil, errors.Wrap(err, "int")
		}
		return int32(i), nil
	case "double":
		s, err := readText(d)
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, errors.Wrap(err, "double")
		}
		return f, nil
	case "string":
		return readText(d)
	case "base64":
		s, err := readText(d)
		if err != nil {
			return nil, err
		}
		bs, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
		if err != nil {
			return nil, errors.Wrap(err, "base64")
		}
		return bs, nil
	case "nil":
		return nil, skipTo(d, "nil")
	case "array":
		return parseArray(d)
	case "struct":
		return parseStruct(d)
	}
	return nil, errors.Errorf("unsupported type <%s>", kind)
}

func parseArray(d *xml.Decoder) (interface{}, error) {
	if _, err := expectNextTag(d, "data"); err != nil {
		return nil, err
	}
	a := []interface{}{}
	for {
		token, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local != "value" {
				return nil, errors.Errorf("array: unexpected <%s>", t.Name.Local)
			}
			v, err := parseValue(d)
			if err != nil {
				return nil, err
			}
			a = append(a, v)
		case xml.EndElement:
			// </data>
			return a, skipTo(d, "array")
		}
	}
}

func parseStruct(d *xml.Decoder) (interface{}, error) {
	m := make(map[string]interface{})
	for {
		token, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local != "member" {
				return nil, errors.Errorf("struct: unexpected <%s>", t.Name.Local)
			}
			name, value, err := parseMember(d)
			if err != nil {
				return nil, err
			}
			m[name] = value
		case xml.EndElement:
			// </struct>
			return m, nil
		}
	}
}

func parseMember(d *xml.Decoder) (string, interface{}, error) {
	var name string
	var value interface{}
	for {
		token, err := d.Token()
		if err != nil {
			return "", nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "name":
				if name, err = readText(d); err != nil {
					return "", nil, err
				}
			case "value":
				if value, err = parseValue(d); err != nil {
					return "", nil, err
				}
			default:
				return "", nil, errors.Errorf("member: unexpected <%s>", t.Name.Local)
			}
		case xml.EndElement:
			// </member>
			return name, value, nil
		}
	}
}

func parseRequest(d *xml.Decoder) (string, []interface{}, error) {
	if _, err := expectNextTag(d, "methodCall"); err != nil {
		return "", nil, err
	}
	if _, err := expectNextTag(d, "methodName"); err != nil {
		return "", nil, err
	}
	name, err := readText(d)
	if err != nil {
		return "", nil, errors.Wrap(err, "methodName")
	}
	name = strings.TrimSpace(name)

	var args []interface{}
	for {
		token, err := d.Token()
		if err != nil {
			return "", nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local != "value" {
				continue // <params>, <param>
			}
			v, err := parseValue(d)
			if err != nil {
				return "", nil, err
			}
			args = append(args, v)
		case xml.EndElement:
			if t.Name.Local == "methodCall" {
				return name, args, nil
			}
		}
	}
}

// parseResponse reads a method response. ok is false when the response is
// a fault, in which case result holds the fault struct.
func parseResponse(d *xml.Decoder) (ok bool, result interface{}, err error) {
	if _, err = expectNextTag(d, "methodResponse"); err != nil {
		return
	}
	var se xml.StartElement
	if se, err = nextTag(d); err != nil {
		return
	}
	switch se.Name.Local {
	case "params":
		if _, err = expectNextTag(d, "param"); err != nil {
			return
		}
		ok = true
	case "fault":
	default:
		err = errors.Errorf("unexpected <%s> in response", se.Name.Local)
		return
	}
	if _, err = expectNextTag(d, "value"); err != nil {
		return
	}
	result, err = parseValue(d)
	return
}
