package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/soch-storefront/internal/domain/contact"
	"github.com/xenking/soch-storefront/internal/relay"
)

const contactSent = "Thank you! Your message has been sent successfully. We will get back to you soon."

// SendContact relays a message from the contact page.
func (h *Handler) SendContact(w http.ResponseWriter, r *http.Request) {
	var m contact.Message
	if err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "name":
			m.Name, err = str(d)
		case "email":
			m.Email, err = str(d)
		case "phone":
			m.Phone, err = str(d)
		case "subject":
			m.Subject, err = str(d)
		case "message":
			m.Body, err = str(d)
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := context.WithoutCancel(r.Context())
	err := h.contact.Send(ctx, m)

	var (
		verr    *contact.ValidationError
		failure *relay.Failure
	)
	switch {
	case err == nil:
		h.contacts.Add(ctx, 1, outcome("sent"))
		writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("success")
			e.Bool(true)
			strField(e, "message", contactSent)
			e.ObjEnd()
		})
	case errors.As(err, &verr):
		writeAPIError(w, apiError{
			Code:    http.StatusUnprocessableEntity,
			Message: "please fill in all required fields",
			Missing: verr.Missing,
			Invalid: verr.Invalid,
		})
	case errors.As(err, &failure):
		h.contacts.Add(ctx, 1, outcome(string(failure.Kind)))
		writeAPIError(w, failureError(failure))
	default:
		zctx.From(ctx).Error("Send contact message", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
