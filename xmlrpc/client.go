package xmlrpc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Client is used by Call. ROS APIs answer quickly; a stuck master should
// not hang the caller forever.
var Client = &http.Client{Timeout: 10 * time.Second}

// Fault is an XML-RPC fault returned by the remote side.
type Fault struct {
	Code   int32
	String string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("XMLRPC fault: code=%d string=%s", f.Code, f.String)
}

// Call invokes method on the XML-RPC server at url.
func Call(url string, method string, args ...interface{}) (interface{}, error) {
	var buffer bytes.Buffer
	if err := emitRequest(&buffer, method, args...); err != nil {
		return nil, errors.Wrap(err, "building request failed")
	}
	r, err := Client.Post(url, "text/xml", &buffer)
	if err != nil {
		return nil, errors.Wrap(err, "sending request failed")
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusOK {
		return nil, errors.Errorf("HTTP failed with code %v", r.Status)
	}

	ok, result, err := parseResponse(xml.NewDecoder(r.Body))
	if err != nil {
		return nil, errors.Wrap(err, "parsing response failed")
	}
	if ok {
		return result, nil
	}
	if m, isMap := result.(map[string]interface{}); isMap {
		code, codeOK := m["faultCode"].(int32)
		msg, msgOK := m["faultString"].(string)
		if codeOK && msgOK {
			return nil, &Fault{Code: code, String: msg}
		}
	}
	return nil, errors.New("malformed XMLRPC fault response")
}
