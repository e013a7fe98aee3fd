package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/securepremium/securepremium/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden at release time via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL  string
	cfgFile    string
	jsonOutput bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "securepremium",
	Short: "SecurePremium CLI",
	Long: `securepremium is the command-line interface for the SecurePremium
device insurance platform.

It registers devices, runs risk assessments, files threat intelligence
reports, and prices insurance premiums against a securepremiumd server.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.securepremium")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.securepremium/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "SecurePremium server URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output raw JSON instead of tables")

	rootCmd.AddCommand(deviceCmd)
	rootCmd.AddCommand(riskCmd)
	rootCmd.AddCommand(reputationCmd)
	rootCmd.AddCommand(premiumCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

func api() *client.Client {
	return client.New(serverURL, client.WithTimeout(30*time.Second))
}

func ctx() context.Context {
	return context.Background()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseKV converts repeated key=value flags into a map.
func parseKV(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid key=value pair %q", p)
		}
		out[k] = v
	}
	return out, nil
}

// ── device ───────────────────────────────────────────────────────────────────

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage device trust profiles",
}

var (
	registerFingerprint string
	registerHardware    []string
	registerSystem      []string
)

var deviceRegisterCmd = &cobra.Command{
	Use:   "register <device-id>",
	Short: "Register a new device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hw, err := parseKV(registerHardware)
		if err != nil {
			return err
		}
		sys, err := parseKV(registerSystem)
		if err != nil {
			return err
		}

		profile, err := api().RegisterDevice(ctx(), args[0], registerFingerprint, hw, sys)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(profile)
		}
		fmt.Printf("registered device %s (first seen %s)\n", profile.DeviceID, profile.FirstSeen.Format(time.RFC3339))
		return nil
	},
}

var deviceGetCmd = &cobra.Command{
	Use:   "get <device-id>",
	Short: "Show a device trust profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := api().GetDevice(ctx(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(profile)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "DEVICE\t%s\n", profile.DeviceID)
		fmt.Fprintf(w, "FINGERPRINT\t%s\n", profile.FingerprintHash)
		fmt.Fprintf(w, "FIRST SEEN\t%s\n", profile.FirstSeen.Format(time.RFC3339))
		fmt.Fprintf(w, "LAST SEEN\t%s\n", profile.LastSeen.Format(time.RFC3339))
		fmt.Fprintf(w, "INTERACTIONS\t%d\n", profile.InteractionCount)
		fmt.Fprintf(w, "ACTIVE\t%t\n", profile.Active)
		return w.Flush()
	},
}

var listActive bool

var deviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := api().ListDevices(ctx(), listActive, 100, 0)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(devices)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DEVICE\tFIRST SEEN\tINTERACTIONS\tACTIVE")
		for _, d := range devices {
			fmt.Fprintf(w, "%s\t%s\t%d\t%t\n",
				d.DeviceID, d.FirstSeen.Format("2006-01-02"), d.InteractionCount, d.Active)
		}
		return w.Flush()
	},
}

var deviceScoreCmd = &cobra.Command{
	Use:   "score <device-id>",
	Short: "Compute a device's trust score",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := api().ScoreDevice(ctx(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(score)
		}
		fmt.Printf("device %s: score %.3f (%s)\n", score.DeviceID, score.Score, score.Category)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for component, value := range score.Breakdown {
			fmt.Fprintf(w, "  %s\t%.3f\n", component, value)
		}
		return w.Flush()
	},
}

var (
	eventType        string
	eventSeverity    string
	eventDescription string
)

var deviceEventCmd = &cobra.Command{
	Use:   "event <device-id>",
	Short: "Record a security event against a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api().AddSecurityEvent(ctx(), args[0], eventType, eventSeverity, eventDescription); err != nil {
			return err
		}
		fmt.Printf("recorded %s event for %s\n", eventSeverity, args[0])
		return nil
	},
}

var deviceDeactivateCmd = &cobra.Command{
	Use:   "deactivate <device-id>",
	Short: "Retire a device (history is retained)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api().DeactivateDevice(ctx(), args[0]); err != nil {
			return err
		}
		fmt.Printf("deactivated device %s\n", args[0])
		return nil
	},
}

func init() {
	deviceRegisterCmd.Flags().StringVar(&registerFingerprint, "fingerprint", "", "Device fingerprint hash (required)")
	deviceRegisterCmd.Flags().StringArrayVar(&registerHardware, "hardware", nil, "Hardware attribute as key=value (repeatable)")
	deviceRegisterCmd.Flags().StringArrayVar(&registerSystem, "system", nil, "System attribute as key=value (repeatable)")
	_ = deviceRegisterCmd.MarkFlagRequired("fingerprint")

	deviceListCmd.Flags().BoolVar(&listActive, "active", false, "Only list active devices")

	deviceEventCmd.Flags().StringVar(&eventType, "type", "", "Event type, e.g. malware_detected (required)")
	deviceEventCmd.Flags().StringVar(&eventSeverity, "severity", "", "Severity: low, medium, high, critical (required)")
	deviceEventCmd.Flags().StringVar(&eventDescription, "description", "", "Free-form description")
	_ = deviceEventCmd.MarkFlagRequired("type")
	_ = deviceEventCmd.MarkFlagRequired("severity")

	deviceCmd.AddCommand(deviceRegisterCmd)
	deviceCmd.AddCommand(deviceGetCmd)
	deviceCmd.AddCommand(deviceListCmd)
	deviceCmd.AddCommand(deviceScoreCmd)
	deviceCmd.AddCommand(deviceEventCmd)
	deviceCmd.AddCommand(deviceDeactivateCmd)
}

// ── risk ─────────────────────────────────────────────────────────────────────

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Run and inspect risk assessments",
}

var metricsFile string

var riskAssessCmd = &cobra.Command{
	Use:   "assess <device-id>",
	Short: "Run a risk assessment from a JSON metrics file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		metrics := map[string]any{}
		if metricsFile != "" {
			raw, err := os.ReadFile(metricsFile)
			if err != nil {
				return fmt.Errorf("read metrics file: %w", err)
			}
			if err := json.Unmarshal(raw, &metrics); err != nil {
				return fmt.Errorf("parse metrics file: %w", err)
			}
		}

		assessment, err := api().AssessRisk(ctx(), args[0], metrics)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(assessment)
		}
		printAssessment(assessment)
		return nil
	},
}

var riskBatchCmd = &cobra.Command{
	Use:   "batch <metrics.csv>",
	Short: "Assess many devices from a CSV of metrics",
	Long: `Batch reads a CSV with a header row and one device per data row and
runs a risk assessment for each. The device_id column is required; every
other column is passed through as a metric field. Numeric values are
converted, "true"/"false" become booleans, and empty cells are skipped.

Example CSV:

  device_id,login_failures,total_login_attempts,anomaly_score,disk_encryption_disabled
  laptop-001-alpha,2,40,0.1,false
  laptop-002-bravo,25,30,0.8,true`,
	Args: cobra.ExactArgs(1),
	RunE: runRiskBatch,
}

func runRiskBatch(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 2 {
		return fmt.Errorf("csv needs a header row and at least one data row")
	}

	header := records[0]
	deviceCol := -1
	for i, col := range header {
		if col == "device_id" {
			deviceCol = i
		}
	}
	if deviceCol < 0 {
		return fmt.Errorf("csv is missing the device_id column")
	}

	c := api()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DEVICE\tRISK\tCATEGORY\tCONFIDENCE\tERROR")

	for _, row := range records[1:] {
		deviceID := row[deviceCol]
		metrics := map[string]any{}
		for i, cell := range row {
			if i == deviceCol || cell == "" {
				continue
			}
			metrics[header[i]] = parseCSVValue(cell)
		}

		assessment, err := c.AssessRisk(ctx(), deviceID, metrics)
		if err != nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\t%v\n", deviceID, err)
			continue
		}
		fmt.Fprintf(w, "%s\t%.4f\t%s\t%.2f\t\n",
			deviceID, assessment.OverallRiskScore, assessment.Category, assessment.ConfidenceLevel)
	}
	return w.Flush()
}

// parseCSVValue converts a CSV cell to the closest JSON type.
func parseCSVValue(cell string) any {
	switch cell {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(cell); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	return cell
}

var riskHistoryCmd = &cobra.Command{
	Use:   "history <device-id>",
	Short: "Show a device's assessment history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		assessments, err := api().AssessmentHistory(ctx(), args[0], 20)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(assessments)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIMESTAMP\tRISK\tCATEGORY\tCONFIDENCE")
		for _, a := range assessments {
			fmt.Fprintf(w, "%s\t%.4f\t%s\t%.2f\n",
				a.Timestamp.Format(time.RFC3339), a.OverallRiskScore, a.Category, a.ConfidenceLevel)
		}
		return w.Flush()
	},
}

func printAssessment(a *client.RiskAssessment) {
	fmt.Printf("device %s: risk %.4f (%s), confidence %.2f\n",
		a.DeviceID, a.OverallRiskScore, a.Category, a.ConfidenceLevel)
	fmt.Printf("  behavioral %.3f  hardware %.3f  network %.3f  anomaly %.3f\n",
		a.BehavioralRisk, a.HardwareRisk, a.NetworkRisk, a.AnomalyScore)
	for _, indicator := range a.ThreatIndicators {
		fmt.Printf("  ! %s\n", indicator)
	}
}

func init() {
	riskAssessCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "JSON file with device metrics")

	riskCmd.AddCommand(riskAssessCmd)
	riskCmd.AddCommand(riskBatchCmd)
	riskCmd.AddCommand(riskHistoryCmd)
}

// ── reputation ───────────────────────────────────────────────────────────────

var reputationCmd = &cobra.Command{
	Use:   "reputation",
	Short: "Interact with the threat intelligence network",
}

var reputationJoinCmd = &cobra.Command{
	Use:   "join <participant-id>",
	Short: "Register a participant in the reputation network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		created, err := api().RegisterParticipant(ctx(), args[0])
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("participant %s registered\n", args[0])
		} else {
			fmt.Printf("participant %s was already registered\n", args[0])
		}
		return nil
	},
}

var (
	reportReporter    string
	reportDevice      string
	reportThreatType  string
	reportSeverity    string
	reportDescription string
	reportEvidence    string
)

var reputationReportCmd = &cobra.Command{
	Use:   "report",
	Short: "File a threat report against a device",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := api().SubmitThreatReport(ctx(),
			reportReporter, reportDevice, reportThreatType, reportSeverity, reportDescription, reportEvidence)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(report)
		}
		fmt.Printf("report %s filed against %s (%s/%s)\n",
			report.ReportID, report.DeviceID, report.ThreatType, report.Severity)
		return nil
	},
}

var verifyQuorum int

var reputationVerifyCmd = &cobra.Command{
	Use:   "verify <report-id>",
	Short: "Add one verification to a threat report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verified, err := api().VerifyReport(ctx(), args[0], verifyQuorum)
		if err != nil {
			return err
		}
		if verified {
			fmt.Printf("report %s is verified\n", args[0])
		} else {
			fmt.Printf("report %s is not yet verified\n", args[0])
		}
		return nil
	},
}

var reputationQueryCmd = &cobra.Command{
	Use:   "query <device-id>",
	Short: "Query a device's reputation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := api().QueryReputation(ctx(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(rep)
		}
		if rep.Reputation == nil {
			fmt.Printf("device %s: unrated\n", args[0])
			return nil
		}
		fmt.Printf("device %s: reputation %.3f (%s), %d report(s) from %d contributor(s)\n",
			rep.DeviceID, rep.Reputation.ReputationScore, rep.RiskLevel,
			rep.Reputation.ReportsCount, rep.Reputation.ContributorCount)
		return nil
	},
}

func init() {
	reputationReportCmd.Flags().StringVar(&reportReporter, "reporter", "", "Reporting participant id (required)")
	reputationReportCmd.Flags().StringVar(&reportDevice, "device", "", "Target device id (required)")
	reputationReportCmd.Flags().StringVar(&reportThreatType, "type", "", "Threat type, e.g. malware (required)")
	reputationReportCmd.Flags().StringVar(&reportSeverity, "severity", "", "Severity: low, medium, high, critical (required)")
	reputationReportCmd.Flags().StringVar(&reportDescription, "description", "", "Free-form description")
	reputationReportCmd.Flags().StringVar(&reportEvidence, "evidence", "", "Evidence hash")
	_ = reputationReportCmd.MarkFlagRequired("reporter")
	_ = reputationReportCmd.MarkFlagRequired("device")
	_ = reputationReportCmd.MarkFlagRequired("type")
	_ = reputationReportCmd.MarkFlagRequired("severity")

	reputationVerifyCmd.Flags().IntVar(&verifyQuorum, "quorum", 0, "Verification quorum (0 = server default)")

	reputationCmd.AddCommand(reputationJoinCmd)
	reputationCmd.AddCommand(reputationReportCmd)
	reputationCmd.AddCommand(reputationVerifyCmd)
	reputationCmd.AddCommand(reputationQueryCmd)
}

// ── premium ──────────────────────────────────────────────────────────────────

var premiumCmd = &cobra.Command{
	Use:   "premium",
	Short: "Price insurance premiums",
}

var (
	quoteCoverage string
	quoteMonths   int
	quoteCount    int
)

var premiumQuoteCmd = &cobra.Command{
	Use:   "quote <device-id>",
	Short: "Generate a premium quote for an assessed device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		quote, err := api().GenerateQuote(ctx(), args[0], quoteCoverage, quoteMonths, quoteCount)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(quote)
		}
		fmt.Printf("device %s, %s coverage:\n", quote.DeviceID, quote.CoverageLevel)
		fmt.Printf("  annual  $%.2f\n", quote.AnnualPremiumUSD)
		fmt.Printf("  monthly $%.2f\n", quote.MonthlyPremiumUSD)
		fmt.Printf("  risk multiplier %.3f, reputation factor %.2f\n",
			quote.RiskAdjustment, quote.ReputationDiscount)
		fmt.Printf("  valid until %s\n", quote.QuoteValidUntil.Format(time.RFC3339))
		return nil
	},
}

var premiumTiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "Show the coverage tier table",
	RunE: func(cmd *cobra.Command, args []string) error {
		tiers, err := api().CoverageTiers(ctx())
		if err != nil {
			return err
		}
		var out any
		if err := json.Unmarshal(tiers, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var (
	estimateDevices      int
	estimateRisk         float64
	estimateReputation   float64
	estimateDistribution []string
)

var premiumEstimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Project the annual cost of insuring a fleet",
	RunE: func(cmd *cobra.Command, args []string) error {
		distribution := make(map[string]float64, len(estimateDistribution))
		for _, pair := range estimateDistribution {
			tier, frac, ok := strings.Cut(pair, "=")
			if !ok {
				return fmt.Errorf("invalid distribution entry %q, want tier=fraction", pair)
			}
			f, err := strconv.ParseFloat(frac, 64)
			if err != nil {
				return fmt.Errorf("invalid fraction in %q: %w", pair, err)
			}
			distribution[tier] = f
		}

		estimate, err := api().EstimateFleetCost(ctx(), estimateDevices, estimateRisk, estimateReputation, distribution)
		if err != nil {
			return err
		}
		var out any
		if err := json.Unmarshal(estimate, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

func init() {
	premiumQuoteCmd.Flags().StringVar(&quoteCoverage, "coverage", "standard", "Coverage tier: basic, standard, premium")
	premiumQuoteCmd.Flags().IntVar(&quoteMonths, "months", 12, "Policy duration in months")
	premiumQuoteCmd.Flags().IntVar(&quoteCount, "count", 1, "Device count for volume discount")

	premiumEstimateCmd.Flags().IntVar(&estimateDevices, "devices", 0, "Total devices in the fleet (required)")
	premiumEstimateCmd.Flags().Float64Var(&estimateRisk, "risk", 0.4, "Average fleet risk score")
	premiumEstimateCmd.Flags().Float64Var(&estimateReputation, "reputation", 0.6, "Average fleet reputation")
	premiumEstimateCmd.Flags().StringArrayVar(&estimateDistribution, "tier", nil, "Coverage distribution as tier=fraction (repeatable)")
	_ = premiumEstimateCmd.MarkFlagRequired("devices")

	premiumCmd.AddCommand(premiumQuoteCmd)
	premiumCmd.AddCommand(premiumTiersCmd)
	premiumCmd.AddCommand(premiumEstimateCmd)
}

// ── stats ────────────────────────────────────────────────────────────────────

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show reputation network statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := api().NetworkStats(ctx())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(stats)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "NETWORK\t%s\n", stats.NetworkID)
		fmt.Fprintf(w, "PARTICIPANTS\t%d\n", stats.TotalParticipants)
		fmt.Fprintf(w, "TRACKED DEVICES\t%d\n", stats.TrackedDevices)
		fmt.Fprintf(w, "TOTAL REPORTS\t%d\n", stats.TotalReports)
		fmt.Fprintf(w, "AVG REPUTATION\t%.3f\n", stats.AverageReputation)
		for severity, count := range stats.SeverityBreakdown {
			fmt.Fprintf(w, "  %s\t%d\n", severity, count)
		}
		return w.Flush()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("securepremium", version)
	},
}
