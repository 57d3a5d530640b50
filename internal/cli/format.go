package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/evcraddock/house-market/internal/analytics"
	"github.com/evcraddock/house-market/internal/email"
	"github.com/evcraddock/house-market/internal/inquiry"
	"github.com/evcraddock/house-market/internal/property"
	"github.com/evcraddock/house-market/internal/viewing"
)

// printJSON marshals v as indented JSON and writes it to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printPropertySummary prints a single property summary in text format.
func printPropertySummary(p *property.Property) {
	fmt.Printf("%s\n", p.Title)
	fmt.Printf("  ID:       %s\n", p.ID)
	fmt.Printf("  Address:  %s\n", fullAddress(p))
	fmt.Printf("  Price:    $%s\n", formatPrice(p.Price))
	if p.Bedrooms > 0 {
		fmt.Printf("  Beds:     %d\n", p.Bedrooms)
	}
	if p.Bathrooms > 0 {
		fmt.Printf("  Baths:    %g\n", p.Bathrooms)
	}
	if p.AreaSqft > 0 {
		fmt.Printf("  Sqft:     %d\n", p.AreaSqft)
	}
	if p.PropertyType != "" {
		fmt.Printf("  Type:     %s\n", p.PropertyType)
	}
	fmt.Printf("  Status:   %s\n", p.Status)
	fmt.Printf("  Views:    %d\n", p.Views)
	if p.ListerName != "" || p.ListerEmail != "" {
		fmt.Printf("  Lister:   %s <%s>\n", p.ListerName, p.ListerEmail)
	}
	if p.Description != "" {
		fmt.Printf("\n%s\n", p.Description)
	}
	for _, u := range p.ImageURLs {
		fmt.Printf("  Image:    %s\n", u)
	}
}

func fullAddress(p *property.Property) string {
	addr := p.Address
	if p.City != "" {
		addr += ", " + p.City
	}
	if p.State != "" {
		addr += ", " + p.State
	}
	if p.Zip != "" {
		addr += " " + p.Zip
	}
	return addr
}

// printPropertyTable prints a list of properties as a formatted table.
func printPropertyTable(props []*property.Property) error {
	if len(props) == 0 {
		fmt.Println("No properties found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tTITLE\tADDRESS\tPRICE\tBED\tBATH\tSTATUS"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "--\t-----\t-------\t-----\t---\t----\t------"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, p := range props {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t$%s\t%d\t%g\t%s\n",
			p.ID, truncate(p.Title, 30), truncate(fullAddress(p), 40),
			formatPrice(p.Price), p.Bedrooms, p.Bathrooms, p.Status); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Printf("\nTotal: %d properties\n", len(props))
	return nil
}

// printInquiryList prints inquiries in text format.
func printInquiryList(list []*inquiry.Inquiry) {
	if len(list) == 0 {
		fmt.Println("No inquiries.")
		return
	}

	for _, q := range list {
		from := q.SenderName
		if from == "" {
			from = q.SenderEmail
		}
		subject := q.Subject
		if subject == "" {
			subject = "(no subject)"
		}
		fmt.Printf("[%s] %s from %s (%s, %s priority)\n  property %s\n  %s\n\n",
			q.CreatedAt.Format("2006-01-02 15:04"), subject, from, q.Status, q.Priority,
			q.PropertyID, q.Message)
	}
}

// printViewingList prints viewings in text format.
func printViewingList(list []*viewing.Viewing) {
	if len(list) == 0 {
		fmt.Println("No viewings.")
		return
	}

	for _, v := range list {
		fmt.Printf("[%s] %s property %s (#%s)\n",
			v.ScheduledAt.Local().Format("2006-01-02 15:04"), v.Status, v.PropertyID, v.ID)
		if v.Notes != "" {
			fmt.Printf("  %s\n", v.Notes)
		}
		fmt.Println()
	}
}

// printDashboard prints listing statistics in text format.
func printDashboard(d *analytics.Dashboard) error {
	fmt.Printf("Listings:  %d\n", d.TotalListings)
	fmt.Printf("Views:     %d\n", d.TotalViews)
	fmt.Printf("Inquiries: %s\n", formatCounts(d.InquiriesByStatus))
	fmt.Printf("Viewings:  %s\n", formatCounts(d.ViewingsByStatus))

	if len(d.TopListings) == 0 {
		return nil
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tTITLE\tVIEWS\tFAVORITES\tCATALOGUED\tINQUIRIES"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, l := range d.TopListings {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
			l.ID, truncate(l.Title, 30), l.Views, l.Favorites, l.Catalogued, l.Inquiries); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return w.Flush()
}

// formatCounts renders a status histogram as "a=1 b=2" in key order.
func formatCounts(counts map[string]int64) string {
	if len(counts) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s := ""
	for i, k := range keys {
		if i > 0 {
			s += " "
		}
		s += k + "=" + strconv.FormatInt(counts[k], 10)
	}
	return s
}

// formatPrice formats a dollar amount as a string with commas.
func formatPrice(dollars int64) string {
	return email.FormatWithCommas(dollars)
}

// parseWhen parses a local date and clock time.
func parseWhen(date, clock string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %q (use YYYY-MM-DD HH:MM)", date+" "+clock)
	}
	return t, nil
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
