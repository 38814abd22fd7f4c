package publish

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ab0utbla-k/cloudwatch-alerts/internal/events"
)

// SNS subjects are limited to 100 characters.
const maxSubjectLength = 100

func subject(report *events.CompileReport) string {
	s := "Alerts compiled - " + report.Summary.StackName
	if !report.Clean() {
		s = "Alerts need attention - " + report.Summary.StackName
	}

	if len(s) > maxSubjectLength {
		s = s[:maxSubjectLength]
		for !utf8.ValidString(s) {
			s = s[:len(s)-1]
		}
	}
	return s
}

// FormatText converts a compile report to a human-readable text message.
func FormatText(report *events.CompileReport) string {
	sum := report.Summary
	var msg strings.Builder

	msg.WriteString("Stack: ")
	msg.WriteString(sum.StackName)
	msg.WriteString("\nService: ")
	msg.WriteString(sum.Service)
	msg.WriteString("\nStage: ")
	msg.WriteString(sum.Stage)
	msg.WriteString("\nRegion: ")
	msg.WriteString(sum.Region)
	if report.AccountID != "" {
		msg.WriteString("\nAccountID: ")
		msg.WriteString(report.AccountID)
	}
	msg.WriteString("\n\n")

	if sum.Skipped {
		msg.WriteString("Alerts were skipped for this stage.\n")
	} else {
		fmt.Fprintf(&msg, "Functions: %d\n", sum.Functions)

		types := make([]string, 0, len(sum.Resources))
		for typ := range sum.Resources {
			types = append(types, typ)
		}
		slices.Sort(types)

		for _, typ := range types {
			fmt.Fprintf(&msg, "%s: %d\n", typ, sum.Resources[typ])
		}
	}

	writeList(&msg, "Deployed alarms no longer compiled", report.OrphanAlarms)
	writeList(&msg, "Missing topics", report.MissingTopics)

	fmt.Fprintf(&msg, "\nTimestamp: %s", report.Timestamp.Format(time.RFC3339))

	return msg.String()
}

func writeList(msg *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}

	fmt.Fprintf(msg, "\n%s:\n", title)
	for i, item := range items {
		fmt.Fprintf(msg, "%d. %s\n", i+1, item)
	}
}
