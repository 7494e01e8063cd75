package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var apiURL string

var rootCmd = &cobra.Command{
	Use:   "bfctl",
	Short: "Boardflow CLI - start and drive workflow executions",
	Long: `bfctl talks to a running Boardflow server over its REST API.

Examples:
  # List available workflow templates
  bfctl templates

  # Start the budget approval workflow
  bfctl start budget-approval --by alice --context budget_amount=250000

  # Inspect an execution
  bfctl get <execution-id>

  # Record a decision on a waiting step
  bfctl decide <execution-id> <step-id> --user alice --decision proceed

  # Approve or reject a waiting approval step
  bfctl approve <execution-id> <step-id> --user bob --role CFO
  bfctl approve <execution-id> <step-id> --user bob --role CFO --reject --rationale "over budget"
`,
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List workflow templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getJSON("/api/v1/templates")
	},
}

var showTemplateCmd = &cobra.Command{
	Use:   "template [id]",
	Short: "Show a workflow template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getJSON("/api/v1/templates/" + args[0])
	},
}

var startCmd = &cobra.Command{
	Use:   "start [template-id]",
	Short: "Start a workflow execution",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		initiatedBy, _ := cmd.Flags().GetString("by")
		pairs, _ := cmd.Flags().GetStringSlice("context")
		execContext, err := parseContext(pairs)
		if err != nil {
			return err
		}
		return postJSON("/api/v1/executions", map[string]any{
			"template_id":  args[0],
			"initiated_by": initiatedBy,
			"context":      execContext,
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get [execution-id]",
	Short: "Show an execution",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getJSON("/api/v1/executions/" + args[0])
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List executions for an initiator",
	RunE: func(cmd *cobra.Command, args []string) error {
		initiatedBy, _ := cmd.Flags().GetString("by")
		if initiatedBy == "" {
			return fmt.Errorf("--by is required")
		}
		return getJSON("/api/v1/executions?initiated_by=" + initiatedBy)
	},
}

var decideCmd = &cobra.Command{
	Use:   "decide [execution-id] [step-id]",
	Short: "Record a decision on a waiting decision step",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		decision, _ := cmd.Flags().GetString("decision")
		rationale, _ := cmd.Flags().GetString("rationale")
		return postJSON(
			fmt.Sprintf("/api/v1/executions/%s/decisions", args[0]),
			map[string]any{"step_id": args[1], "user_id": userID, "decision": decision, "rationale": rationale},
		)
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve [execution-id] [step-id]",
	Short: "Approve or reject a waiting approval step",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		role, _ := cmd.Flags().GetString("role")
		reject, _ := cmd.Flags().GetBool("reject")
		rationale, _ := cmd.Flags().GetString("rationale")
		return postJSON(
			fmt.Sprintf("/api/v1/executions/%s/approvals", args[0]),
			map[string]any{"step_id": args[1], "user_id": userID, "role": role, "approved": !reject, "comment": rationale},
		)
	},
}

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Score a decision for complexity and risk",
	RunE: func(cmd *cobra.Command, args []string) error {
		riskTolerance, _ := cmd.Flags().GetString("risk")
		timeline, _ := cmd.Flags().GetString("timeline")
		budget, _ := cmd.Flags().GetFloat64("budget")
		participants, _ := cmd.Flags().GetInt("participants")
		documents, _ := cmd.Flags().GetInt("documents")
		return postJSON("/api/v1/decisions/assess", map[string]any{
			"risk_tolerance":    riskTolerance,
			"timeline":          timeline,
			"budget_amount":     budget,
			"participant_count": participants,
			"document_count":    documents,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "http://localhost:8080", "Boardflow server base URL")

	startCmd.Flags().String("by", "", "user ID of the initiator (required)")
	startCmd.Flags().StringSlice("context", nil, "initial context entries, key=value (numbers are parsed)")
	startCmd.MarkFlagRequired("by")

	listCmd.Flags().String("by", "", "user ID of the initiator (required)")

	decideCmd.Flags().String("user", "", "deciding user ID (required)")
	decideCmd.Flags().String("decision", "", "decision value (required)")
	decideCmd.Flags().String("rationale", "", "optional rationale")
	decideCmd.MarkFlagRequired("user")
	decideCmd.MarkFlagRequired("decision")

	approveCmd.Flags().String("user", "", "approving user ID (required)")
	approveCmd.Flags().String("role", "", "approver role, e.g. CFO")
	approveCmd.Flags().Bool("reject", false, "reject instead of approve")
	approveCmd.Flags().String("rationale", "", "optional rationale")
	approveCmd.MarkFlagRequired("user")

	assessCmd.Flags().String("risk", "medium", "risk tolerance: low, medium, high")
	assessCmd.Flags().String("timeline", "", "timeline description")
	assessCmd.Flags().Float64("budget", 0, "budget amount")
	assessCmd.Flags().Int("participants", 0, "participant count")
	assessCmd.Flags().Int("documents", 0, "document count")

	rootCmd.AddCommand(templatesCmd, showTemplateCmd, startCmd, getCmd, listCmd,
		decideCmd, approveCmd, assessCmd)
}

func parseContext(pairs []string) (map[string]any, error) {
	ctx := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("invalid context entry %q, expected key=value", pair)
		}
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			ctx[key] = n
		} else {
			ctx[key] = value
		}
	}
	return ctx, nil
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func getJSON(path string) error {
	resp, err := httpClient().Get(apiURL + path)
	if err != nil {
		return err
	}
	return printResponse(resp)
}

func postJSON(path string, body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := httpClient().Post(apiURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		fmt.Println(string(data))
	} else {
		fmt.Println(pretty.String())
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
