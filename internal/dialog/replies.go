package dialog

import (
	"fmt"

	"github.com/orchestrall/patientflow/internal/session"
)

const (
	replyGreeting = "Hi! I can help you book an appointment. Send a date and time like 2026-01-15 at 2pm."
	replyAskSlot  = "What date and time would you like? Please include both, for example 2026-01-15 at 2pm."
	replyRetry    = "Sorry, I didn't catch a date and time. Please send both, for example 2026-01-15 at 2pm."
	replyConflict = "Sorry, that time was just taken. Please reply YES to try again or send another date and time."
	replyError    = "Sorry, something went wrong on our end. Please reply YES to try again in a moment."
)

func replyProposeSlot(slot *session.Slot) string {
	return fmt.Sprintf("I can book you for %s at %s. Reply YES to confirm or NO to pick another time.",
		slot.DisplayDate, slot.DisplayTime)
}

func replyConfirmed(slot *session.Slot) string {
	return fmt.Sprintf("You're booked for %s at %s. See you then!",
		slot.DisplayDate, slot.DisplayTime)
}

func replyConfirmPrompt(slot *session.Slot) string {
	return fmt.Sprintf("Your pending time is %s at %s. Reply YES to confirm or NO to pick another time.",
		slot.DisplayDate, slot.DisplayTime)
}

func replyAlreadyBooked(slot *session.Slot) string {
	if slot == nil {
		return "You already have an appointment booked. Send a new date and time if you'd like to reschedule."
	}
	return fmt.Sprintf("You're already booked for %s at %s. Send a new date and time if you'd like to reschedule.",
		slot.DisplayDate, slot.DisplayTime)
}
