package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/soch-storefront/internal/domain/cart"
	"github.com/xenking/soch-storefront/internal/domain/checkout"
	"github.com/xenking/soch-storefront/internal/relay"
	"github.com/xenking/soch-storefront/internal/session"
)

// GetCheckout returns the checkout state, the form and the order summary.
func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOf(w, r)
	if !ok {
		return
	}
	h.writeCheckout(w, http.StatusOK, s, "")
}

// UpdateCheckoutForm replaces the checkout form. Fields absent from the body
// are cleared.
func (h *Handler) UpdateCheckoutForm(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOf(w, r)
	if !ok {
		return
	}

	var form checkout.Form
	if err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		var dst *string
		switch checkout.Field(key) {
		case checkout.FieldFirstName:
			dst = &form.FirstName
		case checkout.FieldLastName:
			dst = &form.LastName
		case checkout.FieldEmail:
			dst = &form.Email
		case checkout.FieldPhone:
			dst = &form.Phone
		case checkout.FieldAddress:
			dst = &form.Address
		case checkout.FieldCity:
			dst = &form.City
		case checkout.FieldState:
			dst = &form.State
		case checkout.FieldZipCode:
			dst = &form.ZipCode
		case checkout.FieldCountry:
			dst = &form.Country
		default:
			return d.Skip()
		}
		*dst, err = str(d)
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.Checkout.UpdateForm(form); err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}
	h.writeCheckout(w, http.StatusOK, s, "")
}

// SubmitCheckout sends the order. The attempt outlives the client connection
// so that a disconnect cannot leave the flow half-way.
func (h *Handler) SubmitCheckout(w http.ResponseWriter, r *http.Request) {
	h.runCheckout(w, r, func(ctx context.Context, f *checkout.Flow) error {
		return f.Submit(ctx)
	})
}

// RetryCheckout resends the payload of the last failed attempt.
func (h *Handler) RetryCheckout(w http.ResponseWriter, r *http.Request) {
	h.runCheckout(w, r, func(ctx context.Context, f *checkout.Flow) error {
		return f.Retry(ctx)
	})
}

func (h *Handler) runCheckout(w http.ResponseWriter, r *http.Request, run func(context.Context, *checkout.Flow) error) {
	s, ok := sessionOf(w, r)
	if !ok {
		return
	}

	ctx := context.WithoutCancel(r.Context())
	if err := run(ctx, s.Checkout); err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}
	h.checkouts.Add(ctx, 1, outcome("succeeded"))
	h.writeCheckout(w, http.StatusOK, s, RouteHome)
}

// ResetCheckout abandons a finished attempt and returns to the form.
func (h *Handler) ResetCheckout(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOf(w, r)
	if !ok {
		return
	}
	if err := s.Checkout.Reset(); err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}
	h.writeCheckout(w, http.StatusOK, s, "")
}

func (h *Handler) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr    *checkout.ValidationError
		failure *relay.Failure
	)
	switch {
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrSubmissionInProgress),
		errors.Is(err, checkout.ErrNotRetryable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &verr):
		writeAPIError(w, apiError{
			Code:    http.StatusUnprocessableEntity,
			Message: "please fill in all required fields",
			Missing: fieldNames(verr.Missing),
			Invalid: fieldNames(verr.Invalid),
		})
	case errors.As(err, &failure):
		h.checkouts.Add(r.Context(), 1, outcome(string(failure.Kind)))
		writeAPIError(w, failureError(failure))
	default:
		zctx.From(r.Context()).Error("Checkout", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// failureError renders a relay failure as 502. Every failure can be retried.
func failureError(f *relay.Failure) apiError {
	return apiError{
		Code:    http.StatusBadGateway,
		Message: f.Reason,
		Extra: func(e *jx.Encoder) {
			strField(e, "kind", string(f.Kind))
			e.FieldStart("retryable")
			e.Bool(true)
		},
	}
}

func fieldNames(fields []checkout.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}

func (h *Handler) writeCheckout(w http.ResponseWriter, status int, s *session.Session, next string) {
	st := s.Checkout.Status()
	items := s.Cart.Items()

	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		strField(e, "state", string(st.State))
		optStrField(e, "reference", st.Reference)
		e.FieldStart("retryable")
		e.Bool(st.Retryable)
		if st.Failure != nil {
			e.FieldStart("failure")
			e.ObjStart()
			strField(e, "kind", string(st.Failure.Kind))
			strField(e, "reason", st.Failure.Reason)
			e.ObjEnd()
		}

		e.FieldStart("form")
		e.ObjStart()
		for _, f := range checkout.Fields {
			strField(e, string(f), st.Form.Get(f))
		}
		e.ObjEnd()

		e.FieldStart("items")
		e.ArrStart()
		for _, item := range items {
			h.encodeLineItem(e, item)
		}
		e.ArrEnd()
		e.FieldStart("summary")
		encodeSummary(e, cart.Summarize(items, s.Checkout.Pricing()))
		e.FieldStart("canSubmit")
		e.Bool(len(items) > 0 && st.State != checkout.StateSubmitting)
		optStrField(e, "next", next)
		e.ObjEnd()
	})
}
