package model

// VerifiedSessionRecord is one row of the pre-paired feed produced by the
// verification stage. Field names follow the dashboard wire format.
type VerifiedSessionRecord struct {
	FaceID            string     `json:"faceId"`
	LicensePlate      string     `json:"licensePlate"`
	EntryTime         *Timestamp `json:"entryTime"`
	ExitTime          *Timestamp `json:"exitTime"`
	Status            string     `json:"status" validate:"required,oneof=active completed failed unverified"`
	Duration          *int       `json:"duration,omitempty"`
	EntrySessionID    string     `json:"entrySessionId"`
	FaceURL           string     `json:"faceUrl,omitempty"`
	PlateURL          string     `json:"plateUrl,omitempty"`
	ExitSessionID     string     `json:"exitSessionId"`
	ExitFaceURL       string     `json:"exitFaceUrl,omitempty"`
	ExitPlateURL      string     `json:"exitPlateUrl,omitempty"`
	FaceMatchVerified *bool      `json:"faceMatchVerified,omitempty"`
	FaceMatchResult   *bool      `json:"faceMatchResult,omitempty"`
}

// FinalizeResult is the gate backend's answer to a finalize-exit request.
type FinalizeResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	EntrySessionID string `json:"entry_session_id,omitempty"`
	ExitSessionID  string `json:"exit_session_id,omitempty"`
}
