package engine

import "fmt"

// Script lines for the outbound concierge call. Wording tracks the production
// call script; only the company name and offered slots vary.

const (
	replyCompare = "Great! How did the numbers compare to what you're currently seeing?"
	replyResend  = "No problem, I'll make sure we resend that. In the meantime, I can walk you through the highlights quickly."
	replyReask   = "Just to confirm, did you receive the profit analysis text?"

	replyPitch = "That makes sense. Most homeowners I speak with want a quick 15-minute call with our profit strategist to see how we typically boost revenue and reduce costs. Would you like me to set that up?"

	replyDecline     = "Got it, thanks for your time today. If it's helpful, I can text you the analysis summary again. Have a great day!"
	replyPeriodProbe = "No worries, would mornings or afternoons generally work better for you?"

	replyConfirmClose = "Great, thanks again, and talk soon!"
	replyGenericClose = "Thanks for your time today. Have a great day!"
)

func replyGreeting(company, name string) string {
	if name != "" {
		return fmt.Sprintf("Hi %s, this is the %s concierge assistant. I'm an automated assistant following up about the profit analysis you requested for your Airbnb. Did you get the text we sent with your numbers?", name, company)
	}
	return fmt.Sprintf("Hi, this is the %s concierge assistant. I'm an automated assistant following up about the profit analysis you requested for your Airbnb. Did you get the text we sent with your numbers?", company)
}

func replyOfferSlots(offerA, offerB string) string {
	return fmt.Sprintf("Awesome. I have %s or %s. Which works better for you?", offerA, offerB)
}

func replyReofferSlots(offerA, offerB string) string {
	return fmt.Sprintf("I can do %s or %s. Which would you prefer?", offerA, offerB)
}

func replyBooked(slot string) string {
	return fmt.Sprintf("Perfect, I've booked you for %s. You'll get a confirmation text and calendar invite shortly. Anything else I can help with?", slot)
}
