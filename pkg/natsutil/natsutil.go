// Package natsutil provides typed NATS publish/subscribe/request helpers
// with OpenTelemetry trace propagation, a request/reply envelope that
// carries remote errors, and an embedded server for single-node deployments.
package natsutil

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Publish serializes v as JSON and publishes to the given subject.
// Trace context from ctx is injected into NATS message headers.
func Publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	return nc.PublishMsg(msg)
}

// Subscribe registers a handler that deserializes JSON messages of type T.
// Trace context is extracted from NATS message headers and passed to the handler.
// Malformed messages are silently dropped.
func Subscribe[T any](nc *nats.Conn, subject string, handler func(context.Context, T)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			return // drop malformed messages
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))
		handler(ctx, v)
	})
}

// Request sends a JSON-encoded request and decodes the response. ctx bounds
// the wait; without a deadline nats.DefaultTimeout applies.
func Request[Req, Resp any](ctx context.Context, nc *nats.Conn, subject string, req Req) (Resp, error) {
	var zero Resp
	resp, err := roundTrip(ctx, nc, subject, req)
	if err != nil {
		return zero, err
	}
	var result Resp
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return zero, err
	}
	return result, nil
}

func roundTrip[Req any](ctx context.Context, nc *nats.Conn, subject string, req Req) (*nats.Msg, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, nats.DefaultTimeout)
		defer cancel()
	}
	return nc.RequestMsgWithContext(ctx, msg)
}

// RemoteError is an error reported by a Handle responder. Code follows HTTP
// status semantics.
type RemoteError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
}

// CodedError lets a handler error choose its RemoteError code.
type CodedError interface {
	error
	Code() int
}

type envelope[T any] struct {
	Data  *T           `json:"data,omitempty"`
	Error *RemoteError `json:"error,omitempty"`
}

// Handle answers requests on subject with handler's result wrapped in an
// envelope. Handler errors travel back as *RemoteError; malformed requests
// are answered with code 400.
func Handle[Req, Resp any](nc *nats.Conn, subject string, handler func(context.Context, Req) (Resp, error)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var reply envelope[Resp]
		var req Req
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				reply.Error = &RemoteError{Code: 400, Message: err.Error()}
				respond(msg, reply)
				return
			}
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))
		resp, err := handler(ctx, req)
		if err != nil {
			code := 500
			var ce CodedError
			if errors.As(err, &ce) {
				code = ce.Code()
			}
			reply.Error = &RemoteError{Code: code, Message: err.Error()}
		} else {
			reply.Data = &resp
		}
		respond(msg, reply)
	})
}

func respond[T any](msg *nats.Msg, reply envelope[T]) {
	data, err := json.Marshal(reply)
	if err != nil {
		data, _ = json.Marshal(envelope[T]{Error: &RemoteError{Code: 500, Message: err.Error()}})
	}
	_ = msg.Respond(data)
}

// Call is Request against a Handle responder: it unwraps the envelope and
// returns a *RemoteError when the responder failed.
func Call[Req, Resp any](ctx context.Context, nc *nats.Conn, subject string, req Req) (Resp, error) {
	var zero Resp
	msg, err := roundTrip(ctx, nc, subject, req)
	if err != nil {
		return zero, err
	}
	var reply envelope[Resp]
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return zero, err
	}
	if reply.Error != nil {
		return zero, reply.Error
	}
	if reply.Data == nil {
		return zero, &RemoteError{Code: 502, Message: "empty reply"}
	}
	return *reply.Data, nil
}
