package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorResponseEscapes(t *testing.T) {
	w := httptest.NewRecorder()
	BadRequestError(`<script>alert("x")</script>`).Write(w)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `<div class="error">&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;</div>`, w.Body.String())
}

func TestTriggers(t *testing.T) {
	w := httptest.NewRecorder()
	SuccessResponse("ok").
		TriggerSummaryExported("b1", "mem:b1:1").
		TriggerSuccessNotification("Resumen exportado").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	for _, part := range []string{`"summary:exported"`, `"batch_id":"b1"`, `"show-notification"`, `"type":"success"`} {
		assert.Contains(t, trigger, part)
	}
	assert.Equal(t, `<div class="success">ok</div>`, w.Body.String())
}

func TestStatusHelpers(t *testing.T) {
	cases := map[int]*HTMXResponseBuilder{
		http.StatusNotFound:              NotFoundError("x"),
		http.StatusRequestEntityTooLarge: PayloadTooLargeError("x"),
		http.StatusTooManyRequests:       TooManyRequestsError("x"),
		http.StatusInternalServerError:   InternalServerError("x"),
	}
	for code, b := range cases {
		w := httptest.NewRecorder()
		b.Write(w)
		assert.Equal(t, code, w.Code)
	}
}

