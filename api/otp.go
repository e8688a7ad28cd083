package api

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/osr-alliance/backend-crm/otp"
)

type otpRequest struct {
	Phone string `json:"phone"`
}

type otpResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OTP     string `json:"otp,omitempty"`
}

func (s *server) requestOTP(w http.ResponseWriter, r *http.Request) {
	if !s.limiters.allow(clientIP(r, s.trustProxy)) {
		s.metrics.otpRequests.WithLabelValues("rate_limited").Inc()
		writeJSON(w, http.StatusTooManyRequests, &otpResponse{Message: "Too many requests, please try again later"})
		return
	}

	req := &otpRequest{}
	if err := decode(r, w, req); err != nil {
		s.metrics.otpRequests.WithLabelValues("invalid").Inc()
		writeJSON(w, http.StatusBadRequest, &otpResponse{Message: "Invalid JSON body"})
		return
	}

	res, err := s.otp.Request(r.Context(), strings.TrimSpace(req.Phone))
	switch {
	case errors.Is(err, otp.ErrInvalidPhone):
		s.metrics.otpRequests.WithLabelValues("invalid").Inc()
		writeJSON(w, http.StatusBadRequest, &otpResponse{Message: "Please enter a valid phone number"})
		return
	case errors.Is(err, otp.ErrRateLimited):
		s.metrics.otpRequests.WithLabelValues("rate_limited").Inc()
		writeJSON(w, http.StatusTooManyRequests, &otpResponse{Message: "Code requested too often, please try again later"})
		return
	case err != nil:
		s.metrics.otpRequests.WithLabelValues("error").Inc()
		s.logger(r).WithError(err).Error("otp request failed")
		writeJSON(w, http.StatusInternalServerError, &otpResponse{Message: internalErrorMessage})
		return
	}

	resp := &otpResponse{Success: true, Message: "Verification code sent"}
	if res.Delivered {
		s.metrics.otpRequests.WithLabelValues("sent").Inc()
	} else {
		s.metrics.otpRequests.WithLabelValues("logged").Inc()
		resp.Message = "Verification code issued; no SMS gateway configured, check the server log"
	}
	if s.exposeCodes {
		resp.OTP = res.Code
	}
	writeJSON(w, http.StatusOK, resp)
}

// clientIP is the connection address, or the proxy headers when the server sits behind a trusted proxy
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// first address is the original client
			if idx := strings.Index(xff, ","); idx != -1 {
				return strings.TrimSpace(xff[:idx])
			}
			return strings.TrimSpace(xff)
		}

		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return xri
		}
	}

	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}
