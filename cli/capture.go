// ABOUTME: Capture and queue CLI commands
// ABOUTME: Records leads and follow-ups in the field and inspects the offline queue
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/harperreed/hailtrack/models"
)

// CaptureLeadCommand captures a lead, directly when online and queued otherwise
func CaptureLeadCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("capture lead", flag.ExitOnError)
	name := fs.String("name", "", "Lead name (required)")
	phone := fs.String("phone", "", "Phone number")
	email := fs.String("email", "", "Email address")
	address := fs.String("address", "", "Street address")
	lat := fs.Float64("lat", 0, "Latitude")
	lng := fs.Float64("lng", 0, "Longitude")
	vehicleMake := fs.String("make", "", "Vehicle make")
	vehicleModel := fs.String("model", "", "Vehicle model")
	vehicleYear := fs.Int("year", 0, "Vehicle year")
	damage := fs.String("damage", "", "Damage notes")
	source := fs.String("source", "", "Lead source")
	_ = fs.Parse(args)

	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	payload := &models.LeadPayload{
		Name:         *name,
		Phone:        *phone,
		Email:        *email,
		Address:      *address,
		VehicleMake:  *vehicleMake,
		VehicleModel: *vehicleModel,
		VehicleYear:  *vehicleYear,
		DamageNotes:  *damage,
		Source:       *source,
	}

	set := flagsSet(fs)
	if set["lat"] != set["lng"] {
		return fmt.Errorf("--lat and --lng must be given together")
	}
	if set["lat"] {
		payload.Location = &models.Location{Lat: *lat, Lng: *lng}
	}

	res, err := env.Reconciler.Capture(context.Background(), payload, env.Monitor.IsOnline())
	if err != nil {
		return fmt.Errorf("failed to capture lead: %w", err)
	}
	printCaptured("Lead", res.ID, res.Queued)
	return nil
}

// CaptureFollowUpCommand schedules a follow-up against a remote or queued lead
func CaptureFollowUpCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("capture followup", flag.ExitOnError)
	leadID := fs.String("lead", "", "Lead id, remote or queued (required)")
	kind := fs.String("type", models.FollowUpVisit, "Follow-up type: call, visit, text, email")
	at := fs.String("at", "", "When the follow-up is due, RFC 3339 (required)")
	notes := fs.String("notes", "", "Notes")
	_ = fs.Parse(args)

	if *leadID == "" {
		return fmt.Errorf("--lead is required")
	}
	scheduledAt, err := time.Parse(time.RFC3339, *at)
	if err != nil {
		return fmt.Errorf("invalid --at: %w", err)
	}

	payload := &models.FollowUpPayload{
		LeadID:      *leadID,
		Type:        *kind,
		ScheduledAt: scheduledAt,
		Notes:       *notes,
	}

	res, err := env.Reconciler.Capture(context.Background(), payload, env.Monitor.IsOnline())
	if err != nil {
		return fmt.Errorf("failed to capture follow-up: %w", err)
	}
	printCaptured("Follow-up", res.ID, res.Queued)
	return nil
}

func printCaptured(what, id string, queued bool) {
	if queued {
		fmt.Printf("✓ %s queued for sync: %s\n", what, id)
		return
	}
	fmt.Printf("✓ %s created: %s\n", what, id)
}

// PendingCommand lists records waiting to sync
func PendingCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("pending", flag.ExitOnError)
	kind := fs.String("kind", "", "Only show this kind: lead or followup")
	_ = fs.Parse(args)

	kinds := models.SyncOrder
	if *kind != "" {
		k := models.RecordKind(*kind)
		if k != models.KindLead && k != models.KindFollowUp {
			return fmt.Errorf("invalid --kind: %s (valid: lead, followup)", *kind)
		}
		kinds = []models.RecordKind{k}
	}

	var records []models.QueuedRecord
	for _, k := range kinds {
		pending, err := env.Queue.ListPending(k)
		if err != nil {
			return fmt.Errorf("failed to list pending records: %w", err)
		}
		records = append(records, pending...)
	}

	if len(records) == 0 {
		fmt.Println("Nothing waiting to sync")
		return nil
	}
	printRecords(records)
	return nil
}

// DeadLettersCommand lists records that exhausted their sync attempts
func DeadLettersCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("dead-letters", flag.ExitOnError)
	_ = fs.Parse(args)

	records, err := env.Queue.ListDeadLetters()
	if err != nil {
		return fmt.Errorf("failed to list dead letters: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No dead-lettered records")
		return nil
	}
	printRecords(records)
	fmt.Println("\nRun 'hailtrack requeue <id>' to retry a record")
	return nil
}

// RequeueCommand moves a dead-lettered record back to pending
func RequeueCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("requeue", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: hailtrack requeue <id>")
	}
	id := fs.Arg(0)
	if err := env.Queue.Requeue(id); err != nil {
		return fmt.Errorf("failed to requeue: %w", err)
	}
	fmt.Printf("✓ Requeued %s\n", id)
	return nil
}

func printRecords(records []models.QueuedRecord) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tKIND\tPARENT\tCAPTURED\tATTEMPTS\tLAST ERROR")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t--------\t--------\t----------")

	for _, rec := range records {
		parent := rec.ParentID
		if parent == "" {
			parent = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			rec.ID, rec.Kind, parent, rec.EnqueuedAt.Local().Format("2006-01-02 15:04"),
			rec.Attempts, rec.LastError)
	}

	_ = w.Flush()
}

func flagsSet(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}
