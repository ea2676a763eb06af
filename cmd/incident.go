package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/emsdispatch/api/incidents"
	"github.com/kilianp07/emsdispatch/auth"
	"github.com/kilianp07/emsdispatch/core/coordinator"
)

var (
	apiURL      string
	incKind     string
	incSeverity string
	incLocation string
	apiAuth     auth.Conf
	creds       *auth.ClientCred
)

var incidentCmd = &cobra.Command{
	Use:   "incident",
	Short: "Talk to a running coordinator over its HTTP API",
}

var incidentSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new incident",
	RunE:  runIncidentSubmit,
}

var incidentStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print coordinator statistics",
	RunE:  runIncidentStats,
}

func init() {
	pf := incidentCmd.PersistentFlags()
	pf.StringVar(&apiURL, "api", "http://localhost:8080", "API base URL")
	pf.StringVar(&apiAuth.TokenURL, "token-url", os.Getenv("EMS_TOKEN_URL"), "OAuth2 token endpoint of the API proxy")
	pf.StringVar(&apiAuth.ClientID, "client-id", os.Getenv("EMS_CLIENT_ID"), "OAuth2 client id")
	pf.StringVar(&apiAuth.ClientSecret, "client-secret", os.Getenv("EMS_CLIENT_SECRET"), "OAuth2 client secret")
	incidentSubmitCmd.Flags().StringVarP(&incKind, "kind", "k", "general", "incident kind")
	incidentSubmitCmd.Flags().StringVarP(&incSeverity, "severity", "s", "medium", "incident severity")
	incidentSubmitCmd.Flags().StringVarP(&incLocation, "location", "l", "", "incident location")
	_ = incidentSubmitCmd.MarkFlagRequired("location")
	incidentCmd.AddCommand(incidentSubmitCmd, incidentStatsCmd)
	rootCmd.AddCommand(incidentCmd)
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

func apiCall(method, path string, body, out any) error {
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, strings.TrimRight(apiURL, "/")+"/api"+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiAuth.Enabled() {
		if creds == nil {
			creds = auth.NewClientCred(apiAuth)
		}
		if err := creds.SetAuthHeader(req); err != nil {
			return err
		}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		var e incidents.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			return fmt.Errorf("%s %s: %s", method, path, resp.Status)
		}
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, e.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func runIncidentSubmit(cmd *cobra.Command, args []string) error {
	var res incidents.SubmitResponse
	req := incidents.SubmitRequest{Kind: incKind, Severity: incSeverity, Location: incLocation}
	if err := apiCall(http.MethodPost, "/incidents", req, &res); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "incident %d %s (%s %s at %s)\n",
		res.ID, res.Incident.State, res.Incident.Severity, res.Incident.Kind, res.Incident.Location)
	return err
}

func runIncidentStats(cmd *cobra.Command, args []string) error {
	var s coordinator.Stats
	if err := apiCall(http.MethodGet, "/stats", nil, &s); err != nil {
		return err
	}
	printStats(cmd.OutOrStdout(), s)
	return nil
}
