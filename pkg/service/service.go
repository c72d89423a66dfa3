// Package service implements the application services behind the HTTP
// API: member registration and profile management, and the video
// lifecycle.
//
// Authorization happens before these run. The access policy decides
// who may call what; services only perform the checks that remain
// after a request is authorized, such as whether the target row still
// exists or whether the current password matches.
package service

import (
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the full package import path, the otel convention for
// instrumentation scope names.
const tracerName = "github.com/vidhive/vidhive-server/pkg/service"

// File is one uploaded file as the API layer hands it over: the
// multipart part's name, declared size, content type, and unread body.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// finishSpan records the outcome on the span and ends it.
func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// memberAttr tags a span with the acting member.
func memberAttr(memberID string) attribute.KeyValue {
	return attribute.String("vidhive.member_id", memberID)
}
