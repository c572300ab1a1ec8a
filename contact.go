package main

import (
	"fmt"
	"log"
	"net/http"
	"net/smtp"
	"strings"
	"time"
)

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	Phone   string `json:"phone"`
}

func validateContact(in *contactRequest) []fieldError {
	var errs []fieldError
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)

	if len(in.Name) < 2 || len(in.Name) > 100 {
		errs = append(errs, fieldError{"name", "Name must be between 2 and 100 characters"})
	}
	if !emailRe.MatchString(in.Email) {
		errs = append(errs, fieldError{"email", "Please provide a valid email address"})
	}
	if len(in.Subject) < 5 || len(in.Subject) > 200 {
		errs = append(errs, fieldError{"subject", "Subject must be between 5 and 200 characters"})
	}
	if len(in.Message) < 10 || len(in.Message) > 1000 {
		errs = append(errs, fieldError{"message", "Message must be between 10 and 1000 characters"})
	}
	return errs
}

// POST /api/contact/send
func handleContactSend(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in contactRequest
		if err := decodeJSON(r, &in); err != nil {
			errorJSON(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if errs := validateContact(&in); len(errs) > 0 {
			validationJSON(w, errs)
			return
		}

		if !cfg.EmailEnabled() {
			errorJSON(w, http.StatusServiceUnavailable, "Email service is not configured")
			return
		}

		to := cfg.ContactEmail
		if to == "" {
			to = cfg.SMTPUser
		}
		body := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: Contact Form: %s\r\nReply-To: %s\r\n\r\nName: %s\nEmail: %s\nPhone: %s\nSent: %s\n\n%s\n",
			in.Name, cfg.SMTPUser, to, in.Subject, in.Email,
			in.Name, in.Email, in.Phone, time.Now().Format(time.RFC1123), in.Message)

		auth := smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
		addr := cfg.SMTPHost + ":" + cfg.SMTPPort
		if err := smtp.SendMail(addr, auth, cfg.SMTPUser, []string{to}, []byte(body)); err != nil {
			log.Printf("[contact] send failed: %v", err)
			errorJSON(w, http.StatusInternalServerError, "Failed to send message")
			return
		}

		log.Printf("[contact] message sent from=%s subject=%q", in.Email, in.Subject)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Message sent successfully!",
		})
	}
}
