package utils

import (
	"encoding/json"
	"net/http"

	"studentpay-backend/pkg/apperror"
)

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Error writes err as {"error": ..., "code": ...} using the AppError status.
// Unknown errors become a generic 500 so internals are not leaked.
func Error(w http.ResponseWriter, err error) {
	appErr := apperror.GetAppError(err)
	if appErr.Code == apperror.CodeInternal {
		JSON(w, appErr.Status, map[string]string{"error": appErr.Message, "code": appErr.Code})
		return
	}
	JSON(w, appErr.Status, appErr)
}
