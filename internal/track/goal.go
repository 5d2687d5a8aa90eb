package track

import (
	"fmt"
	"strings"
)

// taskTemplate is the natural-language goal handed to the action-selection
// policy when no recorded sequence exists.
const taskTemplate = `Your task:
Given an HMM booking ID %q, retrieve voyage and arrival from HMM Shipping line.
First, navigate to exactly website: http://www.seacargotracking.net/
Find and follow the link "HYUNDAI Merchant Marine (HMM)" and stay on that site.
Find "Track and Trace", input the booking ID in the box and search.
Wait for the results to load.
Find the voyage number and arrival date in the results.
Only return the Final Answer in the format "Voyage: <voyage_number>, Arrival: <arrival_date>"`

// Goal is one run's task: the booking identifier, the rendered task text and
// any corrective amendments accumulated across retries. Read-only input to
// the replay and discovery runners.
type Goal struct {
	BookingID  string
	Task       string
	Amendments []string
}

func NewGoal(bookingID string) Goal {
	return Goal{
		BookingID: bookingID,
		Task:      fmt.Sprintf(taskTemplate, bookingID),
	}
}

// Prompt renders the task plus accumulated corrective context, so a retried
// discovery does not restart from a blank goal.
func (g Goal) Prompt() string {
	if len(g.Amendments) == 0 {
		return g.Task
	}
	var b strings.Builder
	b.WriteString(g.Task)
	b.WriteString("\n\nCORRECTIVE CONTEXT from previous attempts:")
	for i, a := range g.Amendments {
		fmt.Fprintf(&b, "\n%d. %s", i+1, a)
	}
	return b.String()
}
