package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/and161185/sublease/internal/model"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func tsString(t model.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func dateString(t model.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}

func price(p float64) string { return "$" + strconv.FormatFloat(p, 'f', -1, 64) }

func printListings(w io.Writer, ls model.Listings) error {
	if len(ls) == 0 {
		_, err := fmt.Fprintln(w, "no listings")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tLOCATION\tBEDS\tFROM\tOWNER")
	for _, l := range ls {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			l.ID, l.Title, price(l.Price), l.Location, l.Bedrooms, dateString(l.AvailableFrom), l.UserUsername)
	}
	return tw.Flush()
}

func printConversations(w io.Writer, cs model.Conversations) error {
	if len(cs) == 0 {
		_, err := fmt.Fprintln(w, "no conversations")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WITH\tUSER ID\tLISTING\tLISTING ID\tUNREAD\tLAST\tAT")
	for _, c := range cs {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%s\t%s\n",
			c.OtherUserName, c.OtherUserID, c.ListingTitle, c.ListingID, c.UnreadCount, c.LastMessage, tsString(c.LastMessageTime))
	}
	return tw.Flush()
}

func printMessages(w io.Writer, ms []model.Message) error {
	if len(ms) == 0 {
		_, err := fmt.Fprintln(w, "no messages")
		return err
	}
	for _, m := range ms {
		if _, err := fmt.Fprintf(w, "[%s] %s: %s\n", tsString(m.CreatedAt), m.SenderUsername, m.Text); err != nil {
			return err
		}
	}
	return nil
}
