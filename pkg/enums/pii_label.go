package enums

// PIILabel is an entity label the classifier may attach to a text span.
type PIILabel string

const (
	PIILabelPerson  PIILabel = "PERSON"
	PIILabelEmail   PIILabel = "EMAIL"
	PIILabelPhone   PIILabel = "PHONE"
	PIILabelAddress PIILabel = "ADDRESS"
)

// DefaultPIILabels is the label vocabulary used when none is configured.
var DefaultPIILabels = []PIILabel{
	PIILabelPerson,
	PIILabelEmail,
	PIILabelPhone,
	PIILabelAddress,
}

// PIILabelStrings converts a label slice to raw strings for wire payloads.
func PIILabelStrings(labels []PIILabel) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		out = append(out, string(l))
	}
	return out
}
