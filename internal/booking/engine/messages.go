package engine

const (
	msgFillAllFields       = "Du måste fylla in alla fält"
	msgMakeAChoice         = "Du måste göra ett val här"
	msgOnlyCustomersCreate = "Translator can not create booking"
	msgPastDue             = "Can't create booking in past"
	msgInvalidDue          = "Ogiltigt datum eller tid"
	msgUnknownJobFor       = "Okänt val för tolkbehov"
	msgUnknownConsumerType = "Okänd kundtyp"

	msgAlreadyBooked         = "Du har redan en bokning den tiden %s. Du har inte fått denna tolkning"
	msgAlreadyTaken          = "Denna tolkning har redan accepterats av annan tolk. Du har inte fått denna tolkning"
	msgAccepted              = "Du har nu accepterat och fått bokningen för %stolk %dmin %s"
	msgOnlyTranslatorsAccept = "Endast tolkar kan acceptera bokningar"

	msgCancellationWindow = "Du kan inte avboka en bokning som sker inom 24 timmar genom DigitalTolk. Vänligen ring på +46 73 75 86 865 och gör din avbokning over telefon. Tack!"
	msgNotCancellable     = "Bokningen kan inte avbokas i nuvarande status"
	msgNotYourBooking     = "Du är inte tilldelad denna bokning"
	msgNoTranslator       = "Bokningen har ingen tilldelad tolk"
	msgCancelled          = "Bokningen har avbokats"

	msgSessionEnded  = "Session ended"
	msgNotCarriedOut = "Bokningen markerad som ej utförd av kund"

	msgReopened          = "Tolk cancelled!"
	msgTryAgain          = "Please try again!"
	msgReopeningOf       = "This booking is a reopening of booking #%d"
	msgUpdated           = "Updated"
	msgRecordUpdated     = "Record updated!"
	msgAddComment        = "Please, add comment"
	msgAdminOnly         = "Endast administratörer kan uppdatera bokningar"
	msgNeedsComment      = "Admin comment is required for this status change"
	msgNeedsSession      = "Session time is required to complete a started booking"
	msgStatusForbidden   = "Status change from %s to %s is not allowed"
	msgUnknownTranslator = "Tolken hittades inte"

	msgPushSent = "Push sent"
	msgSMSSent  = "SMS sent"
)

const dueLayout = "2006-01-02 15:04"
