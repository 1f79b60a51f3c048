package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesikahq/hospital-records/internal/appointment"
	"github.com/mesikahq/hospital-records/internal/attachment"
	"github.com/mesikahq/hospital-records/internal/audit"
	"github.com/mesikahq/hospital-records/internal/auth"
	"github.com/mesikahq/hospital-records/internal/config"
	"github.com/mesikahq/hospital-records/internal/doctor"
	"github.com/mesikahq/hospital-records/internal/migrate"
	"github.com/mesikahq/hospital-records/internal/patient"
	"github.com/mesikahq/hospital-records/internal/records"
)

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func initCmd() *cobra.Command {
	var path string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "configs/config.yaml", "where to write the configuration")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func migrateCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect or upgrade the data files",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show legacy and unreadable records per data file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}
			defer logger.Sync()

			statuses, err := migrate.NewManager(cfg.Files(), logger).Status(cmd.Context())
			if err != nil {
				return err
			}
			printStatuses(cmd.OutOrStdout(), statuses)
			return nil
		},
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Rewrite data files into the current layout, keeping a .bak copy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}
			defer logger.Sync()

			statuses, err := migrate.NewManager(cfg.Files(), logger).Up(cmd.Context())
			if err != nil {
				return err
			}
			if len(statuses) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Data files are up to date.")
				return nil
			}
			printStatuses(cmd.OutOrStdout(), statuses)
			return nil
		},
	}

	cmd.AddCommand(statusCmd, upCmd)
	return cmd
}

func printStatuses(w io.Writer, statuses []migrate.Status) {
	tw := table(w)
	fmt.Fprintln(tw, "FILE\tKIND\tRECORDS\tLEGACY\tMALFORMED")
	for _, st := range statuses {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", st.File, st.Kind, st.Records, st.Legacy, st.Malformed)
	}
	tw.Flush()
}

func loginCmd(flags *globalFlags, a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check credentials",
		RunE: withLogin(flags, a, func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s (%s %d)\n", a.principal.Name, a.principal.Role, a.principal.ID)
			return nil
		}),
	}
}

// meCmd is the patient dashboard.
func meCmd(flags *globalFlags, a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show your details, bills, prescriptions and appointments",
		RunE: withLogin(flags, a, func(cmd *cobra.Command, args []string) error {
			ctx := a.ctx(cmd.Context())
			out := cmd.OutOrStdout()

			if a.principal.Role == auth.RoleDoctor {
				d, err := a.doctors.Get(ctx, a.principal.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Doctor %d: %s (%s)\n\n", d.ID, d.Name, d.Specialization)
				printAppointments(out, a.appointments.ListForDoctor(ctx, d.ID))
				return nil
			}

			p, err := a.patients.Get(ctx, a.principal.ID)
			if err != nil {
				return err
			}
			printPatient(out, p)
			fmt.Fprintln(out)
			printBills(out, p.Bills)
			fmt.Fprintf(out, "Total due: %.2f\n\n", p.TotalDue())
			printPrescriptions(out, p.Prescriptions)
			fmt.Fprintln(out)
			printAppointments(out, a.appointments.ListForPatient(ctx, p.ID))
			return nil
		}),
	}
}

func patientCmd(flags *globalFlags, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patient",
		Short: "Manage patients",
	}

	var in patient.NewPatient
	var age string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Register a patient",
		RunE: asDoctor(flags, a, func(cmd *cobra.Command, args []string) error {
			n, err := patient.ParseAge(age)
			if err != nil {
				return err
			}
			in.Age = n
			p, err := a.patients.Create(a.ctx(cmd.Context()), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Patient %s added with ID %d\n", p.Name, p.ID)
			return nil
		}),
	}
	addCmd.Flags().StringVar(&in.Name, "name", "", "patient name")
	addCmd.Flags().StringVar(&age, "age", "", "patient age")
	addCmd.Flags().StringVar(&in.Ailment, "ailment", "", "ailment")
	addCmd.Flags().StringVar(&in.Password, "patient-password", "", "password for the patient")
	addCmd.MarkFlagRequired("name")
	addCmd.MarkFlagRequired("age")

	var search string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List patients, optionally filtered by id or name",
		RunE: asDoctor(flags, a, func(cmd *cobra.Command, args []string) error {
			patients, err := a.patients.Search(a.ctx(cmd.Context()), search)
			if err != nil {
				return err
			}
			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tAGE\tAILMENT")
			for _, p := range patients {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", p.ID, p.Name, p.Age, p.Ailment)
			}
			return tw.Flush()
		}),
	}
	listCmd.Flags().StringVar(&search, "search", "", "id or part of a name")

	showCmd := &cobra.Command{
		Use:   "show <id-or-name>",
		Short: "Show the first patient matching an id or name",
		Args:  cobra.ExactArgs(1),
		RunE: asDoctor(flags, a, func(cmd *cobra.Command, args []string) error {
			p, err := a.patients.Find(a.ctx(cmd.Context()), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printPatient(out, p)
			fmt.Fprintln(out)
			printBills(out, p.Bills)
			fmt.Fprintln(out)
			printPrescriptions(out, p.Prescriptions)
			return nil
		}),
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a patient",
		Args:  cobra.ExactArgs(1),
		RunE: asDoctor(flags, a, func(cmd *cobra.Command, args []string) error {
			id, err := parseID("patient", args[0])
			if err != nil {
				return err
			}
			if err := a.patients.Delete(a.ctx(cmd.Context()), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Patient %d deleted\n", id)
			return nil
		}),
	}

	var newPassword, confirm string
	passwordCmd := &cobra.Command{
		Use:   "password <id>",
		Short: "Set a patient's password; --password must be your own",
		Args:  cobra.ExactArgs(1),
		RunE: asDoctor(flags, a, func(cmd *cobra.Command, args []string) error {
			id, err := parseID("patient", args[0])
			if err != nil {
				return err
			}
			err = a.auth.ChangePatientPassword(a.ctx(cmd.Context()), a.principal, a.password, id, newPassword, confirm)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password updated for patient %d\n", id)
			return nil
		}),
	}
	passwordCmd.Flags().StringVar(&newPassword, "new", "", "new patient password")
	passwordCmd.Flags().StringVar(&confirm, "confirm", "", "new patient password again")

	historyCmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Show audit events for a patient",
		Args:  cobra.ExactArgs(1),
		RunE: asDoctor(flags, a, func(cmd *cobra.Command, args []string) error {
			id, err := parseID("patient", args[0])
			if err != nil {
				return err
			}
			events, err := a.patients.GetHistory(a.ctx(cmd.Context()), id)
			if err != nil {
				return err
			}
			return printEvents(cmd.OutOrStdout(), events)
		}),
	}

	cmd.AddCommand(addCmd, listCmd, showCmd, deleteCmd, passwordCmd, historyCmd)
	return cmd
}

func billCmd(flags *globalFlags, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bill",
		Short: "Manage a patient's bills",
	}

	var amount string
	var in patient.NewBill
	addCmd := &cobra.Command{
		Use:   "add <patient-id>",
		Short: "Add a pending bill",
		Args:  cobra.ExactArgs(1),
		RunE: asDoctor(flags, a, func(cmd *cobra.Command, args []string) error {
			id, err := parseID("patient", args[0])
			if err != nil {
				return err
			}
			if in.Amount, err = patient.ParseAmount(amount); err != nil {
				return err
			}
			b, err := a.patients.AddBill(a.ctx(cmd.Context()), id, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bill %d added for patient %d\n", b.ID, id)
			return nil
		}),
	}
	addCmd.Flags().StringVar(&amount, "amount", "", "amount")
	addCmd.Flags().StringVar(&in.Description, "description", "", "what the bill is for")
	addCmd.Flags().StringVar(&in.Date, "date", "", "YYYY-MM-DD (default today)")
	addCmd.MarkFlagRequired("amount")

	listCmd := &cobra.Command{
		Use:   "list <patient-id>",
		Short: "List bills and the total due",
		Args:  cobra.ExactArgs(1),
		RunE: withLogin(flags, a, func(cmd *cobra.Command, args []string) error {
			id, err := parseID("patient", args[0])
			if err != nil {
				return err
			}
			if err := a.requireSelfOrDoctor(id); err != nil {
				return err
			}
			p, err := a.patients.Get(a.ctx(cmd.Context()), id)
			if err != nil {
				return err
			}
			printBills(cmd.OutOrStdout(), p.Bills)
			fmt.Fprintf(cmd.OutOrStdout(), "Total due: %.2f\n", p.TotalDue())
			return nil
		}),
	}

	payCmd := &cobra.Command{
		Use:   "pay <patient-id> <bill-id>",
		Short: "Mark a bill as paid",
		Args:  cobra.ExactArgs(2),
		RunE: asDoctor(flags, a, func(cmd *cobra.Command, args []string) error {
			pid, bid, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := a.patients.MarkBillPaid(a.ctx(cmd.Context()), pid, bid); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bill %d marked as paid\n", bid)
			return nil
		}),
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <patient-id> <bill-id>",
		Short: "Delete a bill",
		Args:  cobra.ExactArgs(2),
		RunE: asDoctor(flags, a, func(cmd *cobra.Command, args []string) error {
			pid, bid, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := a.patients.DeleteBill(a.ctx(cmd.Context()), pid, bid); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bill %d deleted\n", bid)
			return nil
		}),
	}

	cmd.AddCommand(addCmd, listCmd, payCmd, deleteCmd)
	return cmd
}

func prescriptionCmd(flags *globalFlags, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "prescription",
		Aliases: []string{"rx"},
		Short:   "Manage a patient's prescriptions",
	}

	var in patient.NewPrescription
	var imagePath string
	addCmd := &cobra.Command{
		Use:   "add <patient-id>",
		Short: "Add a prescription with an optional JPEG or PNG image",
		Args:  cobra.ExactArgs(1),
		RunE: asDoctor(flags, a, func(cmd *cobra.Command, args []string) error {
			id, err := parseID("patient", args[0])
			if err != nil {
				return err
			}
			if imagePath != "" {
				if in.Image, err = attachment.ReadFile(imagePath, attachment.DefaultMaxSize); err != nil {
					return err
				}
			}
			rx, err := a.patients.AddPrescription(a.ctx(cmd.Context()), id, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Prescription %d added for patient %d\n", rx.ID, id)
			return nil
		}),
	}
	addCmd.Flags().StringVar(&in.Medicine, "medicine", "", "medicine name")
	addCmd.Flags().StringVar(&in.Description, "description", "", "dosage and notes")
	addCmd.Flags().StringVar(&in.Date, "date", "", "YYYY-MM-DD (default today)")
	addCmd.Flags().StringVar(&imagePath, "image", "", "path to a scanned prescription")
	addCmd.MarkFlagRequired("medicine")

	listCmd := &cobra.Command{
		Use:   "list <patient-id>",
		Short: "List prescriptions",
		Args:  cobra.ExactArgs(1),
		RunE: withLogin(flags, a, func(cmd *cobra.Command, args []string) error {
			id, err := parseID("patient", args[0])
			if err != nil {
				return err
			}
			if err := a.requireSelfOrDoctor(id); err != nil {
				return err
			}
			p, err := a.patients.Get(a.ctx(cmd.Context()), id)
			if err != nil {
				return err
			}
			printPrescriptions(cmd.OutOrStdout(), p.Prescriptions)
			return nil
		}),
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <patient-id> <prescription-id>",
		Short: "Delete a prescription",
		Args:  cobra.ExactArgs(2),
		RunE: asDoctor(flags, a, func(cmd *cobra.Command, args []string) error {
			pid, rxid, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := a.patients.DeletePrescription(a.ctx(cmd.Context()), pid, rxid); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Prescription %d deleted\n", rxid)
			return nil
		}),
	}

	var outDir string
	imageCmd := &cobra.Command{
		Use:   "image <patient-id> <prescription-id>",
		Short: "Save a prescription image to a file",
		Args:  cobra.ExactArgs(2),
		RunE: withLogin(flags, a, func(cmd *cobra.Command, args []string) error {
			pid, rxid, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := a.requireSelfOrDoctor(pid); err != nil {
				return err
			}
			data, err := a.patients.PrescriptionImage(a.ctx(cmd.Context()), pid, rxid)
			if err != nil {
				return err
			}
			path, err := attachment.WriteFile(outDir, fmt.Sprintf("prescription_%d_%d", pid, rxid), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Image saved to %s\n", path)
			return nil
		}),
	}
	imageCmd.Flags().StringVar(&outDir, "out", ".", "directory to save the image in")

	cmd.AddCommand(addCmd, listCmd, deleteCmd, imageCmd)
	return cmd
}

func doctorCmd(flags *globalFlags, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Manage doctors",
	}

	var in doctor.NewDoctor
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Register a doctor",
		RunE: asDoctor(flags, a, func(cmd *cobra.Command, args []string) error {
			d, err := a.doctors.Create(a.ctx(cmd.Context()), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Doctor %s added with ID %d\n", d.Name, d.ID)
			return nil
		}),
	}
	addCmd.Flags().StringVar(&in.Name, "name", "", "doctor name")
	addCmd.Flags().StringVar(&in.Specialization, "specialization", "", "specialization")
	addCmd.Flags().StringVar(&in.Password, "doctor-password", "", "password for the doctor")
	addCmd.MarkFlagRequired("name")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List doctors",
		RunE: withLogin(flags, a, func(cmd *cobra.Command, args []string) error {
			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tSPECIALIZATION")
			for _, d := range a.doctors.List(a.ctx(cmd.Context())) {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", d.ID, d.Name, d.Specialization)
			}
			return tw.Flush()
		}),
	}

	cmd.AddCommand(addCmd, listCmd)
	return cmd
}

func appointmentCmd(flags *globalFlags, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "appointment",
		Short: "Schedule and list appointments",
	}

	var in appointment.NewAppointment
	scheduleCmd := &cobra.Command{
		Use:   "schedule <patient-id>",
		Short: "Schedule an appointment with yourself",
		Args:  cobra.ExactArgs(1),
		RunE: asDoctor(flags, a, func(cmd *cobra.Command, args []string) error {
			ctx := a.ctx(cmd.Context())
			id, err := parseID("patient", args[0])
			if err != nil {
				return err
			}
			if _, err := a.patients.Get(ctx, id); err != nil {
				return err
			}
			in.PatientID = id
			in.DoctorID = a.principal.ID
			appt, err := a.appointments.Schedule(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Appointment %d scheduled for %s %s\n", appt.ID, appt.Date, appt.Time)
			return nil
		}),
	}
	scheduleCmd.Flags().StringVar(&in.Date, "date", "", "YYYY-MM-DD (default today)")
	scheduleCmd.Flags().StringVar(&in.Time, "time", "", "HH:MM")

	var patientID int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List your appointments, or a patient's with --patient",
		RunE: withLogin(flags, a, func(cmd *cobra.Command, args []string) error {
			ctx := a.ctx(cmd.Context())
			var views []appointment.View
			switch {
			case a.principal.Role == auth.RolePatient:
				views = a.appointments.ListForPatient(ctx, a.principal.ID)
			case patientID != 0:
				views = a.appointments.ListForPatient(ctx, patientID)
			default:
				views = a.appointments.ListForDoctor(ctx, a.principal.ID)
			}
			printAppointments(cmd.OutOrStdout(), views)
			return nil
		}),
	}
	listCmd.Flags().IntVar(&patientID, "patient", 0, "patient id (doctors only)")

	cmd.AddCommand(scheduleCmd, listCmd)
	return cmd
}

func exportCmd(flags *globalFlags, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export records to CSV",
	}

	patientsCmd := &cobra.Command{
		Use:   "patients",
		Short: "Export all patients",
		RunE: asDoctor(flags, a, func(cmd *cobra.Command, args []string) error {
			ctx := a.ctx(cmd.Context())
			path, err := a.exporter.Patients(ctx, a.patients.List(ctx))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Patients exported to %s\n", path)
			return nil
		}),
	}

	billsCmd := &cobra.Command{
		Use:   "bills <patient-id>",
		Short: "Export one patient's bills",
		Args:  cobra.ExactArgs(1),
		RunE: withLogin(flags, a, func(cmd *cobra.Command, args []string) error {
			ctx := a.ctx(cmd.Context())
			id, err := parseID("patient", args[0])
			if err != nil {
				return err
			}
			if err := a.requireSelfOrDoctor(id); err != nil {
				return err
			}
			p, err := a.patients.Get(ctx, id)
			if err != nil {
				return err
			}
			path, err := a.exporter.Bills(ctx, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bills exported to %s\n", path)
			return nil
		}),
	}

	cmd.AddCommand(patientsCmd, billsCmd)
	return cmd
}

func auditCmd(flags *globalFlags, a *app) *cobra.Command {
	var eventType, userID string
	var from, limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the audit log, newest first",
		RunE: asDoctor(flags, a, func(cmd *cobra.Command, args []string) error {
			filters := map[string]interface{}{}
			if eventType != "" {
				filters["event_type"] = eventType
			}
			if userID != "" {
				filters["user_id"] = userID
			}
			events, err := a.audit.QueryEvents(a.ctx(cmd.Context()), filters, from, limit)
			if err != nil {
				return err
			}
			return printEvents(cmd.OutOrStdout(), events)
		}),
	}
	cmd.Flags().StringVar(&eventType, "event", "", "event type, e.g. LOGIN or MODIFY")
	cmd.Flags().StringVar(&userID, "user", "", "actor, e.g. Doctor:1001")
	cmd.Flags().IntVar(&from, "from", 0, "number of events to skip")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of events")
	return cmd
}

func parseIDs(args []string) (int, int, error) {
	pid, err := parseID("patient", args[0])
	if err != nil {
		return 0, 0, err
	}
	id, err := parseID("record", args[1])
	if err != nil {
		return 0, 0, err
	}
	return pid, id, nil
}

func printPatient(w io.Writer, p records.Patient) {
	fmt.Fprintf(w, "Patient %d: %s\nAge: %d\nAilment: %s\n", p.ID, p.Name, p.Age, p.Ailment)
}

func printBills(w io.Writer, bills []records.Bill) {
	if len(bills) == 0 {
		fmt.Fprintln(w, "No bills.")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "BILL\tAMOUNT\tDESCRIPTION\tDATE\tSTATUS")
	for _, b := range bills {
		fmt.Fprintf(tw, "%d\t%.2f\t%s\t%s\t%s\n", b.ID, b.Amount, b.Description, b.Date, b.Status)
	}
	tw.Flush()
}

func printPrescriptions(w io.Writer, rxs []records.Prescription) {
	if len(rxs) == 0 {
		fmt.Fprintln(w, "No prescriptions.")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "RX\tMEDICINE\tDESCRIPTION\tDATE\tIMAGE")
	for _, rx := range rxs {
		image := "-"
		if rx.HasImage() {
			image = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", rx.ID, rx.Medicine, rx.Description, rx.Date, image)
	}
	tw.Flush()
}

func printAppointments(w io.Writer, views []appointment.View) {
	if len(views) == 0 {
		fmt.Fprintln(w, "No appointments.")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "APPT\tDATE\tTIME\tPATIENT\tDOCTOR")
	for _, v := range views {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", v.ID, v.Date, v.Time, v.PatientName, v.DoctorName)
	}
	tw.Flush()
}

func printEvents(w io.Writer, events []audit.AuditEvent) error {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events.")
		return nil
	}
	tw := table(w)
	fmt.Fprintln(tw, "TIME\tTYPE\tUSER\tACTION\tRESOURCE\tMESSAGE")
	for _, e := range events {
		resource := e.Resource
		if e.ResourceID != "" {
			resource += ":" + e.ResourceID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.EventType, e.UserID, e.Action, resource, e.Message)
	}
	return tw.Flush()
}
