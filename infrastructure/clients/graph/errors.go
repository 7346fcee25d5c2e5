package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"social-publisher/domain/apperror"
)

// APIError is the decoded "error" object of a failed Graph call.
type APIError struct {
	Status    int    `json:"-"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	Subcode   int    `json:"error_subcode"`
	UserTitle string `json:"error_user_title"`
	UserMsg   string `json:"error_user_msg"`
	TraceID   string `json:"fbtrace_id"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if e.UserMsg != "" {
		msg += ": " + e.UserMsg
	}
	return fmt.Sprintf("graph error %d (code %d, subcode %d, %s): %s", e.Status, e.Code, e.Subcode, e.Type, msg)
}

func parseAPIError(status int, body []byte) *APIError {
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		envelope.Error.Status = status
		return envelope.Error
	}
	return &APIError{Status: status, Message: strings.TrimSpace(string(body))}
}

type codeRule struct {
	code    int
	subcode int // 0 matches any subcode
	class   apperror.Class
}

// Subcode rules come first so they win over a broader code rule.
var codeRules = []codeRule{
	{code: 9007, subcode: 2207027, class: apperror.ClassNotReady},
	{code: 36003, subcode: 2207009, class: apperror.ClassAspectRatio},
	{code: 9004, subcode: 2207052, class: apperror.ClassUnfetchable},
	{code: 10, class: apperror.ClassPermission},
	{code: 190, class: apperror.ClassPermission},
	{code: 9007, class: apperror.ClassNotReady},
	{code: 36003, class: apperror.ClassAspectRatio},
	{code: 9004, class: apperror.ClassUnfetchable},
}

var subcodeRules = map[int]apperror.Class{
	2207027: apperror.ClassNotReady,
	2207009: apperror.ClassAspectRatio,
	2207052: apperror.ClassUnfetchable,
}

var substringRules = []struct {
	needles []string
	class   apperror.Class
}{
	{[]string{"permission", "not authorized", "(#10)", "(#200)"}, apperror.ClassPermission},
	{[]string{"aspect ratio"}, apperror.ClassAspectRatio},
	{[]string{"not ready", "not finished", "not available yet"}, apperror.ClassNotReady},
	{[]string{"could not be fetched", "failed to fetch", "unable to fetch", "media download"}, apperror.ClassUnfetchable},
}

// ClassifyError maps a Graph failure to an error class: the (code, subcode)
// table first, then substring heuristics on the message.
func ClassifyError(err error) apperror.Class {
	if err == nil {
		return apperror.ClassOther
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code >= 200 && apiErr.Code <= 299 {
			return apperror.ClassPermission
		}
		for _, r := range codeRules {
			if r.code == apiErr.Code && (r.subcode == 0 || r.subcode == apiErr.Subcode) {
				return r.class
			}
		}
		if class, ok := subcodeRules[apiErr.Subcode]; ok {
			return class
		}
	}
	msg := strings.ToLower(err.Error())
	for _, r := range substringRules {
		for _, n := range r.needles {
			if strings.Contains(msg, n) {
				return r.class
			}
		}
	}
	return apperror.ClassOther
}

// IsPermissionDenial is the prober's narrower test: only code 10 or an
// OAuthException counts as a confirmed denial.
func IsPermissionDenial(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == 10 || apiErr.Type == "OAuthException"
}
