package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/mail"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sungwon/message-relay/internal/dispatcher"
	"github.com/sungwon/message-relay/internal/storage"
)

// maxAttachmentBytes caps uploaded attachments at 25 MB, the common
// mail provider limit.
const maxAttachmentBytes = 25 << 20

// maxFormMemory is the in-memory budget for multipart parsing; larger
// parts spill to temp files.
const maxFormMemory = 8 << 20

// messageResponse is the JSON shape of one delivery record.
type messageResponse struct {
	ID                 uuid.UUID `json:"id"`
	FirstName          string    `json:"firstName,omitempty"`
	LastName           string    `json:"lastName,omitempty"`
	Recipient          string    `json:"recipient"`
	Subject            string    `json:"subject"`
	Status             string    `json:"status"`
	FailureReason      string    `json:"failureReason,omitempty"`
	AttachmentFileName string    `json:"attachmentFileName,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func toMessageResponse(rec storage.DeliveryRecord) messageResponse {
	return messageResponse{
		ID:                 rec.ID,
		FirstName:          rec.FirstName,
		LastName:           rec.LastName,
		Recipient:          rec.Recipient,
		Subject:            rec.Subject,
		Status:             string(rec.Status),
		FailureReason:      rec.FailureReason,
		AttachmentFileName: rec.AttachmentFileName,
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}
}

// SubmitMessageHandler accepts a multipart form submission and responds
// 202 once the record exists and the publish has been handed off.
//
// Form fields: firstName, lastName, email, subject, message, and an
// optional attachment file part.
func SubmitMessageHandler(svc *dispatcher.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			respondError(w, http.StatusBadRequest, "expected multipart form data")
			return
		}
		defer r.MultipartForm.RemoveAll()

		sub := &dispatcher.Submission{
			FirstName: r.FormValue("firstName"),
			LastName:  r.FormValue("lastName"),
			Recipient: r.FormValue("email"),
			Subject:   r.FormValue("subject"),
			Body:      r.FormValue("message"),
		}

		var validationErrs []string
		if sub.Recipient == "" {
			validationErrs = append(validationErrs, "email is required")
		} else if _, err := mail.ParseAddress(sub.Recipient); err != nil {
			validationErrs = append(validationErrs, "email is not a valid address")
		}
		if sub.Subject == "" {
			validationErrs = append(validationErrs, "subject is required")
		}
		if sub.Body == "" {
			validationErrs = append(validationErrs, "message is required")
		}

		file, header, err := r.FormFile("attachment")
		switch {
		case err == nil:
			defer file.Close()
			if header.Size > maxAttachmentBytes {
				validationErrs = append(validationErrs, "attachment exceeds the 25 MB limit")
				break
			}
			data, readErr := io.ReadAll(io.LimitReader(file, maxAttachmentBytes+1))
			if readErr != nil {
				respondError(w, http.StatusBadRequest, "failed to read attachment")
				return
			}
			if len(data) > maxAttachmentBytes {
				validationErrs = append(validationErrs, "attachment exceeds the 25 MB limit")
				break
			}
			sub.AttachmentName = header.Filename
			sub.Attachment = data
		case errors.Is(err, http.ErrMissingFile):
			// attachment is optional
		default:
			respondError(w, http.StatusBadRequest, "malformed attachment part")
			return
		}

		if len(validationErrs) > 0 {
			respondValidationErrors(w, validationErrs)
			return
		}

		receipt, err := svc.Submit(r.Context(), sub)
		if err != nil {
			switch {
			case errors.Is(err, dispatcher.ErrInvalidInput):
				respondError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, dispatcher.ErrAttachmentUpload):
				respondError(w, http.StatusBadGateway, "attachment storage unavailable")
			default:
				respondError(w, http.StatusInternalServerError, "failed to accept message")
			}
			return
		}

		respondJSON(w, http.StatusAccepted, map[string]string{
			"id":     receipt.RecordID.String(),
			"status": string(receipt.Status),
		})
	}
}

// GetMessageHandler returns the delivery record for one submission.
func GetMessageHandler(records storage.RecordStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid message id")
			return
		}

		rec, err := records.GetRecordByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrRecordNotFound) {
				respondError(w, http.StatusNotFound, "message not found")
				return
			}
			respondError(w, http.StatusInternalServerError, "failed to load message")
			return
		}

		respondJSON(w, http.StatusOK, toMessageResponse(rec))
	}
}

// recordLister is the slice of the storage layer the list endpoint needs.
type recordLister interface {
	ListRecords(ctx context.Context, limit, offset int32) ([]storage.DeliveryRecord, error)
}

// ListMessagesHandler returns delivery records newest first with
// limit/offset paging. Limit defaults to 50, capped at 200.
func ListMessagesHandler(records recordLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseQueryInt(r, "limit", 50)
		if limit < 1 {
			limit = 50
		}
		if limit > 200 {
			limit = 200
		}
		offset := parseQueryInt(r, "offset", 0)
		if offset < 0 {
			offset = 0
		}

		recs, err := records.ListRecords(r.Context(), int32(limit), int32(offset))
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to list messages")
			return
		}

		out := make([]messageResponse, 0, len(recs))
		for _, rec := range recs {
			out = append(out, toMessageResponse(rec))
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"messages": out,
			"limit":    limit,
			"offset":   offset,
		})
	}
}

func parseQueryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
