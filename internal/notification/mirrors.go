package notification

import (
	"bytes"
	"text/template"
)

// mirrorSpec derives the secondary, branch-facing notification from a
// primary dispatch. Templates render against the primary message's Metadata.
type mirrorSpec struct {
	title    string
	template *template.Template
}

func mustMirror(title, tmpl string) mirrorSpec {
	return mirrorSpec{
		title:    title,
		template: template.Must(template.New(title).Option("missingkey=zero").Parse(tmpl)),
	}
}

// mirrors is the fixed lookup table from primary category to the mirror
// broadcast sent to the originating branch role. Categories without an entry
// produce no mirror.
var mirrors = map[string]mirrorSpec{
	CategoryAssignment: mustMirror(
		"Request routed to solicitor",
		"Legal search request {{.caseNumber}} has been routed to {{.solicitorName}} for verification.",
	),
	CategoryAccepted: mustMirror(
		"Request accepted by solicitor",
		"Legal search request {{.caseNumber}} was accepted by the assigned solicitor.",
	),
	CategoryRejected: mustMirror(
		"Request declined by solicitor",
		"Legal search request {{.caseNumber}} was declined by the assigned solicitor and is being rerouted.",
	),
	CategoryReturned: mustMirror(
		"Request returned by solicitor",
		"Legal search request {{.caseNumber}} was returned by the assigned solicitor for more information.",
	),
	CategoryCompleted: mustMirror(
		"Verification report submitted",
		"The verification report for legal search request {{.caseNumber}} has been submitted.",
	),
}

// mirrorFor renders the mirror message for a primary dispatch, or reports
// that the category has no mirror.
func mirrorFor(primary Message) (Message, bool) {
	spec, ok := mirrors[primary.Category]
	if !ok {
		return Message{}, false
	}

	var body bytes.Buffer
	if err := spec.template.Execute(&body, primary.Metadata); err != nil {
		// Metadata is engine-built; a render failure is a programming error
		// and falls back to the primary body.
		body.Reset()
		body.WriteString(primary.Body)
	}

	return Message{
		Title:    spec.title,
		Category: primary.Category,
		Body:     body.String(),
		Metadata: primary.Metadata,
		BranchID: primary.BranchID,
	}, true
}
