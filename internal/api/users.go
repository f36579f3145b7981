package api

import (
	"net/http"

	"civicconnect/internal/service"
	"civicconnect/internal/util"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Register(r.Context(), h.caller(r), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusCreated, map[string]any{"message": res.Message, "user_id": res.UserID, "email": res.Email})
}

type codeRequest struct {
	Email       string `json:"email"`
	OTPCode     string `json:"otp_code"`
	ResetCode   string `json:"reset_code"`
	NewPassword string `json:"new_password"`
}

func (h *Handlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.svc.VerifyEmail(r.Context(), h.caller(r), req.Email, req.OTPCode)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"message": "Email verified successfully", "user_id": id})
}

func (h *Handlers) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ResendOTP(r.Context(), h.caller(r), req.Email); err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"message": "A new OTP code has been sent to your email address."})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), h.caller(r), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.setSessionCookie(w, r, res.SessionToken); err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"message": "Login successful", "user": res.User, "token": res.Token})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), h.caller(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.clearSessionCookie(w, r); err != nil {
		h.log.WarnContext(r.Context(), "clear session cookie failed", "error", err)
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"message": "Logged out successfully"})
}

func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), h.caller(r), req.Email); err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{
		"message": "If an account exists for this email, a password reset code has been sent.",
	})
}

func (h *Handlers) VerifyResetCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.VerifyResetCode(r.Context(), req.Email, req.ResetCode); err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"message": "Reset code verified", "email": req.Email})
}

func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), h.caller(r), req.Email, req.ResetCode, req.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"message": "Password reset successfully"})
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Me(r.Context(), h.caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"user": u})
}

func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	u, err := h.svc.GetProfile(r.Context(), h.caller(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"user": u})
}

func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req service.ProfileInput
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.svc.UpdateProfile(r.Context(), h.caller(r), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"message": "Profile updated successfully", "user": u})
}

func (h *Handlers) UserIssues(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	items, pg, err := h.svc.UserIssues(r.Context(), h.caller(r), id, pageFrom(r, 10, 50))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"issues": items, "pagination": pg})
}

func (h *Handlers) UserStats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	st, err := h.svc.UserStats(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteOK(w, http.StatusOK, map[string]any{"stats": st})
}
