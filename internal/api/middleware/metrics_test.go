package middleware

import "testing"

func TestNormalizePath(t *testing.T) {
	const id = "a1b2c3d4-e5f6-7890-abcd-ef1234567890"

	tests := []struct {
		path string
		want string
	}{
		{"/health/live", "/health/live"},
		{"/metrics", "/metrics"},
		{"/api/v1/auth/login", "/api/v1/auth/login"},
		{"/api/v1/batches", "/api/v1/batches"},
		{"/api/v1/batches/" + id, "/api/v1/batches/{id}"},
		{"/api/v1/batches/" + id + "/reject", "/api/v1/batches/{id}/reject"},
		{"/api/v1/inspections/" + id, "/api/v1/inspections/{id}"},
		{"/api/v1/inspections/" + id + "/complete", "/api/v1/inspections/{id}/complete"},
		{"/api/v1/credentials/generate", "/api/v1/credentials/generate"},
		{"/api/v1/credentials/" + id, "/api/v1/credentials/{id}"},
		{"/api/v1/credentials/" + id + "/qrcode", "/api/v1/credentials/{id}/qrcode"},
		// verify-префикс должен распознаваться раньше общего /credentials/
		{"/api/v1/credentials/verify", "/api/v1/credentials/verify"},
		{"/api/v1/credentials/verify/" + id, "/api/v1/credentials/verify/{id}"},
		{"/неизвестный/путь", "/неизвестный/путь"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, хотели %q", tt.path, got, tt.want)
		}
	}
}
