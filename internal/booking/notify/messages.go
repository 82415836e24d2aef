package notify

import (
	"fmt"
	"strconv"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

// MessageType tags a push notification for the mobile apps
type MessageType string

const (
	MessageSuitableJob         MessageType = "suitable_job"
	MessageJobAccepted         MessageType = "job_accepted"
	MessageJobCancelled        MessageType = "job_cancelled"
	MessageTranslatorCancelled MessageType = "translator_cancelled"
	MessageSessionStartRemind  MessageType = "session_start_remind"
	MessageJobExpired          MessageType = "job_expired"
)

const (
	soundNormal    = "normal_booking"
	soundEmergency = "emergency_booking"
	dueLayout      = "2006-01-02 15:04"
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04"
)

// Email templates
const (
	TemplateJobCreated             = "emails.job-created"
	TemplateJobAccepted            = "emails.job-accepted"
	TemplateJobAssignedTranslator  = "emails.job-assigned-translator"
	TemplateSessionEnded           = "emails.session-ended"
	TemplateJobCancelTranslator    = "emails.job-cancel-translator"
	TemplateStatusChangedCustomer  = "emails.status-changed-from-pending-or-assigned-customer"
	TemplateJobReopened            = "emails.job-reopened"
	TemplateChangedDate            = "emails.job-changed-date"
	TemplateChangedTranslatorOld   = "emails.job-changed-translator-old-translator"
	TemplateChangedTranslatorNew   = "emails.job-changed-translator-new-translator"
	TemplateChangedTranslatorOwner = "emails.job-changed-translator-customer"
	TemplateChangedLanguage        = "emails.job-changed-lang"
)

// Message is the content of a push notification
type Message struct {
	Type  MessageType
	Text  string
	Sound string
	Data  map[string]string
}

func baseData(t MessageType, job *domain.Job) map[string]string {
	return map[string]string{
		"notification_type": string(t),
		"job_id":            strconv.FormatInt(job.ID, 10),
	}
}

// SuitableJobMessage offers a job to a translator
func SuitableJobMessage(job *domain.Job, language string) Message {
	msg := Message{
		Type:  MessageSuitableJob,
		Sound: soundNormal,
		Data:  baseData(MessageSuitableJob, job),
	}
	msg.Data["immediate"] = strconv.FormatBool(job.Immediate)
	msg.Data["due"] = job.Due.Format(dueLayout)

	if job.Immediate {
		msg.Sound = soundEmergency
		msg.Text = fmt.Sprintf("Ny akutbokning för %stolk %dmin", language, job.Duration)
	} else {
		msg.Text = fmt.Sprintf("Ny bokning för %stolk %dmin %s", language, job.Duration, job.Due.Format(dueLayout))
	}
	return msg
}

// JobAcceptedMessage tells the requester a translator took the job
func JobAcceptedMessage(job *domain.Job, language string) Message {
	return Message{
		Type: MessageJobAccepted,
		Text: fmt.Sprintf("Din bokning för %stolk %dmin %s har accepterats av en tolk.",
			language, job.Duration, job.Due.Format(dueLayout)),
		Sound: soundNormal,
		Data:  baseData(MessageJobAccepted, job),
	}
}

// JobCancelledMessage tells the translator the requester withdrew
func JobCancelledMessage(job *domain.Job, language string) Message {
	return Message{
		Type: MessageJobCancelled,
		Text: fmt.Sprintf("Kunden har avbokat bokningen för %stolk %dmin %s.",
			language, job.Duration, job.Due.Format(dueLayout)),
		Sound: soundNormal,
		Data:  baseData(MessageJobCancelled, job),
	}
}

// TranslatorCancelledMessage tells the requester their translator withdrew
func TranslatorCancelledMessage(job *domain.Job, language, translatorName string) Message {
	return Message{
		Type: MessageTranslatorCancelled,
		Text: fmt.Sprintf("Er %stolk, %s, har avbokat tolkningen. Vi letar nu efter en ny tolk som kan ersätta denne. Tack.",
			language, translatorName),
		Sound: soundNormal,
		Data:  baseData(MessageTranslatorCancelled, job),
	}
}

// SessionStartRemindMessage reminds a party of an upcoming session
func SessionStartRemindMessage(job *domain.Job, language string) Message {
	where := "telefon"
	if job.IsPhysicalOnly() {
		where = "på plats i " + job.Town
	}

	return Message{
		Type: MessageSessionStartRemind,
		Text: fmt.Sprintf("Detta är en påminnelse om att du har en %stolkning (%s) kl %s på %s i %d min. Lycka till och kom ihåg att ge feedback efter utförd tolkning!",
			language, where, job.Due.Format(timeLayout), job.Due.Format(dateLayout), job.Duration),
		Sound: soundNormal,
		Data:  baseData(MessageSessionStartRemind, job),
	}
}

// JobExpiredMessage tells the requester nobody accepted the job
func JobExpiredMessage(job *domain.Job, language string) Message {
	return Message{
		Type: MessageJobExpired,
		Text: fmt.Sprintf("Tyvärr har ingen tolk accepterat er bokning: (%s, %dmin, %s). Vänligen pröva boka om tiden.",
			language, job.Duration, job.Due.Format(dueLayout)),
		Sound: soundNormal,
		Data:  baseData(MessageJobExpired, job),
	}
}

// SMSMessage builds the text offered to translators by SMS
func SMSMessage(job *domain.Job, language, city string) string {
	duration := FormatDuration(job.Duration)
	if job.IsPhysicalOnly() {
		return fmt.Sprintf("Ny bokning för %stolk: %s kl %s, %s, på plats i %s. Svara i appen. Bokningsnummer #%d",
			language, job.Due.Format(dateLayout), job.Due.Format(timeLayout), duration, city, job.ID)
	}
	return fmt.Sprintf("Ny telefonbokning för %stolk: %s kl %s, %s. Svara i appen. Bokningsnummer #%d",
		language, job.Due.Format(dateLayout), job.Due.Format(timeLayout), duration, job.ID)
}

// FormatDuration renders minutes the way booking texts show them
func FormatDuration(minutes int) string {
	switch {
	case minutes < 60:
		return fmt.Sprintf("%dmin", minutes)
	case minutes == 60:
		return "1h"
	default:
		return fmt.Sprintf("%02dh %02dmin", minutes/60, minutes%60)
	}
}

// SessionEndedSubject is the subject of both session-ended emails
func SessionEndedSubject(job *domain.Job) string {
	return fmt.Sprintf("Information om avslutad tolkning för bokningsnummer # %d", job.ID)
}
