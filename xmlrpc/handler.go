package xmlrpc

import (
	"bytes"
	"encoding/xml"
	"net/http"
	"reflect"
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Method is a func taking the decoded XML-RPC arguments and returning
// (value, error).
type Method interface{}

// Handler serves XML-RPC requests by calling the Method registered under
// the requested name.
type Handler struct {
	mapping map[string]Method
	wait    sync.WaitGroup
}

func NewHandler(mapping map[string]Method) *Handler {
	return &Handler{mapping: mapping}
}

// WaitForShutdown blocks until in-flight requests are done.
func (h *Handler) WaitForShutdown() {
	h.wait.Wait()
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.wait.Add(1)
	defer h.wait.Done()

	var buffer bytes.Buffer
	if err := h.respond(&buffer, req); err != nil {
		buffer.Reset()
		emitFault(&buffer, 1, err.Error())
	}
	w.Header().Set("Content-Type", "text/xml")
	w.Header().Set("Content-Length", strconv.Itoa(buffer.Len()))
	buffer.WriteTo(w)
}

func (h *Handler) respond(buf *bytes.Buffer, req *http.Request) error {
	name, args, err := parseRequest(xml.NewDecoder(req.Body))
	if err != nil {
		return errors.Errorf("invalid request: %v", err)
	}
	method, ok := h.mapping[name]
	if !ok {
		return errors.Errorf("no method named '%v'", name)
	}

	fn := reflect.ValueOf(method)
	ft := fn.Type()
	if ft.Kind() != reflect.Func || ft.NumOut() != 2 || !ft.Out(1).Implements(errorType) {
		return errors.Errorf("method '%v' has an invalid signature", name)
	}
	if ft.NumIn() != len(args) {
		return errors.Errorf("method '%v' takes %d arguments, got %d", name, ft.NumIn(), len(args))
	}
	argValues := make([]reflect.Value, len(args))
	for i, v := range args {
		in := ft.In(i)
		if v == nil {
			argValues[i] = reflect.Zero(in)
			continue
		}
		av := reflect.ValueOf(v)
		if !av.Type().AssignableTo(in) {
			return errors.Errorf("method '%v': argument %d is %T, want %v", name, i, v, in)
		}
		argValues[i] = av
	}

	results := fn.Call(argValues)
	if errValue := results[1]; !errValue.IsNil() {
		return errors.Errorf("method '%v' call failed: %v", name, errValue.Interface())
	}
	if err := emitResponse(buf, results[0].Interface()); err != nil {
		return errors.Errorf("method '%v' returned an invalid result type", name)
	}
	return nil
}
