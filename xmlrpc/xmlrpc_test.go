package xmlrpc

import (
	"bytes"
	"encoding/xml"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func TestEmitValue(t *testing.T) {
	cases := []struct {
		value    interface{}
		expected string
	}{
		{nil, ""},
		{true, "<boolean>1</boolean>"},
		{false, "<boolean>0</boolean>"},
		{42, "<int>42</int>"},
		{uint16(7), "<int>7</int>"},
		{3.14, "<double>3.14</double>"},
		{"Hello, world!", "<string>Hello, world!</string>"},
		{"a<b&c", "<string>a&lt;b&amp;c</string>"},
		{[]byte("ABCDEFG"), "<base64>QUJDREVGRw==</base64>"},
		{
			[...]interface{}{12, "Egypt", false, -31},
			"<array><data><value><int>12</int></value><value><string>Egypt</string></value>" +
				"<value><boolean>0</boolean></value><value><int>-31</int></value></data></array>",
		},
		{
			map[string]interface{}{"upperBound": 139, "lowerBound": 18},
			"<struct><member><name>lowerBound</name><value><int>18</int></value></member>" +
				"<member><name>upperBound</name><value><int>139</int></value></member></struct>",
		},
	}
	for _, c := range cases {
		var buffer bytes.Buffer
		if err := emitValue(&buffer, c.value); err != nil {
			t.Errorf("emitValue(%v): %v", c.value, err)
			continue
		}
		if s := buffer.String(); s != c.expected {
			t.Errorf("emitValue(%v) = %s, want %s", c.value, s, c.expected)
		}
	}
}

func TestEmitValueRejects(t *testing.T) {
	var buffer bytes.Buffer
	if err := emitValue(&buffer, map[int]int{1: 2}); err == nil {
		t.Error("non-string map key accepted")
	}
	if err := emitValue(&buffer, make(chan int)); err == nil {
		t.Error("channel accepted")
	}
}

func TestEmitRequest(t *testing.T) {
	var buffer bytes.Buffer
	emitRequest(&buffer, "doSomething", true, 42)
	expected := xml.Header +
		"<methodCall><methodName>doSomething</methodName><params>" +
		"<param><value><boolean>1</boolean></value></param>" +
		"<param><value><int>42</int></value></param>" +
		"</params></methodCall>"
	if s := buffer.String(); s != expected {
		t.Error(s)
	}
}

func TestEmitFault(t *testing.T) {
	var buffer bytes.Buffer
	emitFault(&buffer, 42, "failed")
	expected := xml.Header +
		"<methodResponse><fault><value><struct>" +
		"<member><name>faultCode</name><value><int>42</int></value></member>" +
		"<member><name>faultString</name><value><string>failed</string></value></member>" +
		"</struct></value></fault></methodResponse>"
	if s := buffer.String(); s != expected {
		t.Error(s)
	}
}

func parseOne(t *testing.T, source string) interface{} {
	t.Helper()
	decoder := xml.NewDecoder(bytes.NewBufferString(source))
	if _, err := expectNextTag(decoder, "value"); err != nil {
		t.Fatal(err)
	}
	value, err := parseValue(decoder)
	if err != nil {
		t.Fatalf("parseValue(%s): %v", source, err)
	}
	return value
}

func TestParseScalars(t *testing.T) {
	cases := []struct {
		source   string
		expected interface{}
	}{
		{"<value><boolean>0</boolean></value>", false},
		{"<value><boolean>1</boolean></value>", true},
		{"<value><int>-432</int></value>", int32(-432)},
		{"<value><i4>43</i4></value>", int32(43)},
		{"<value><double>-273.5</double></value>", -273.5},
		{"<value><string>Hello, world!</string></value>", "Hello, world!"},
		{"<value><string></string></value>", ""},
		{"<value>untyped</value>", "untyped"},
		{"<value></value>", ""},
		{"<value><base64>QUJDREVGRw==</base64></value>", []byte("ABCDEFG")},
	}
	for _, c := range cases {
		if diff := cmp.Diff(c.expected, parseOne(t, c.source)); diff != "" {
			t.Errorf("%s (-want +got):\n%s", c.source, diff)
		}
	}
}

func TestParseInvalidScalars(t *testing.T) {
	for _, source := range []string{
		"<value><boolean>2</boolean></value>",
		"<value><int>x</int></value>",
		"<value><double>pi</double></value>",
		"<value><dateTime.iso8601>19980717T14:08:55</dateTime.iso8601></value>",
	} {
		decoder := xml.NewDecoder(bytes.NewBufferString(source))
		decoder.Token()
		if _, err := parseValue(decoder); err == nil {
			t.Errorf("%s parsed", source)
		}
	}
}

func TestParseArrayAndStruct(t *testing.T) {
	array := parseOne(t, `<value><array>
		<data>
			<value><i4>12</i4></value>
			<value><string>Egypt</string></value>
			<value><boolean>0</boolean></value>
			<value><array><data><value>TCPROS</value></data></array></value>
		</data>
	</array></value>`)
	want := []interface{}{int32(12), "Egypt", false, []interface{}{"TCPROS"}}
	if diff := cmp.Diff(want, array); diff != "" {
		t.Errorf("array (-want +got):\n%s", diff)
	}

	st := parseOne(t, `<value><struct>
		<member><name>lowerBound</name><value><i4>18</i4></value></member>
		<member><name>upperBound</name><value><i4>139</i4></value></member>
	</struct></value>`)
	wantStruct := map[string]interface{}{"lowerBound": int32(18), "upperBound": int32(139)}
	if diff := cmp.Diff(wantStruct, st); diff != "" {
		t.Errorf("struct (-want +got):\n%s", diff)
	}
}

func TestParseRequest(t *testing.T) {
	source := xml.Header + `<methodCall>
		<methodName>requestTopic</methodName>
		<params>
			<param><value><string>/listener</string></value></param>
			<param><value><array><data><value><array><data><value>TCPROS</value></data></array></value></data></array></value></param>
		</params>
	</methodCall>`
	name, args, err := parseRequest(xml.NewDecoder(bytes.NewBufferString(source)))
	if err != nil {
		t.Fatal(err)
	}
	if name != "requestTopic" {
		t.Error(name)
	}
	want := []interface{}{"/listener", []interface{}{[]interface{}{"TCPROS"}}}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Errorf("args (-want +got):\n%s", diff)
	}
}

func TestParseResponse(t *testing.T) {
	source := `<?xml version="1.0"?>
<methodResponse><params><param>
<value><array><data>
  <value><i4>1</i4></value>
  <value></value>
  <value><array><data>
    <value>TCPROS</value>
    <value>hedgehog</value>
    <value><i4>52060</i4></value>
  </data></array></value>
</data></array></value>
</param></params></methodResponse>`
	ok, result, err := parseResponse(xml.NewDecoder(bytes.NewBufferString(source)))
	if err != nil || !ok {
		t.Fatalf("parseResponse = %v, %v", ok, err)
	}
	want := []interface{}{int32(1), "", []interface{}{"TCPROS", "hedgehog", int32(52060)}}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Errorf("result (-want +got):\n%s", diff)
	}
}

func TestParseFault(t *testing.T) {
	var buffer bytes.Buffer
	emitFault(&buffer, 42, "failed")
	ok, result, err := parseResponse(xml.NewDecoder(&buffer))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("fault parsed as success")
	}
	want := map[string]interface{}{"faultCode": int32(42), "faultString": "failed"}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Errorf("fault (-want +got):\n%s", diff)
	}
}

type myDispatcher struct {
	X int32
}

func (h *myDispatcher) addTwoInts(a int32, b int32) (interface{}, error) {
	return h.X * (a + b), nil
}

func TestServer(t *testing.T) {
	d := myDispatcher{2}
	handler := NewHandler(map[string]Method{
		"addTwoInts": d.addTwoInts,
		"fail":       func() (interface{}, error) { return nil, errors.New("boom") },
	})
	server := httptest.NewServer(handler)
	defer server.Close()

	result, err := Call(server.URL, "addTwoInts", 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if i, ok := result.(int32); !ok || i != 6 {
		t.Errorf("addTwoInts = %v", result)
	}

	for _, call := range []struct {
		method string
		args   []interface{}
	}{
		{"fail", nil},
		{"missing", nil},
		{"addTwoInts", []interface{}{1}},
		{"addTwoInts", []interface{}{"1", 2}},
	} {
		_, err := Call(server.URL, call.method, call.args...)
		var fault *Fault
		if !errors.As(err, &fault) {
			t.Errorf("%s%v: error %v is not a fault", call.method, call.args, err)
		}
	}
	handler.WaitForShutdown()
}
