package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"dreamofone.ai/internal/persistence/indexdb"
	"dreamofone.ai/internal/sim/world"
)

type adminState struct {
	world.Status
	Index     *indexdb.Stats `json:"index,omitempty"`
	Observers int            `json:"observers"`
}

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	raw := fs.Bool("raw", false, "print the raw JSON body")
	_ = fs.Parse(args)

	st, body, err := fetchState(&http.Client{Timeout: 5 * time.Second}, *baseURL)
	if *raw && body != nil {
		fmt.Println(strings.TrimSpace(string(body)))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "state:", err)
		os.Exit(1)
	}
	if !*raw {
		printState(os.Stdout, st)
	}
}

// fetchState returns the decoded state and the body as received. body is set
// whenever the server answered, even with an error status.
func fetchState(cl *http.Client, baseURL string) (adminState, []byte, error) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/admin/state"
	resp, err := cl.Get(u)
	if err != nil {
		return adminState{}, nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return adminState{}, nil, fmt.Errorf("read: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return adminState{}, body, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var st adminState
	if err := json.Unmarshal(body, &st); err != nil {
		return adminState{}, body, fmt.Errorf("decode: %w", err)
	}
	return st, body, nil
}

func printState(out io.Writer, st adminState) {
	fmt.Fprintf(out, "session %s tick=%d now=%.1fs observers=%d\n", st.SessionID, st.Tick, st.Now, st.Observers)
	fmt.Fprintf(out, "G=%.2f exposure=%d pending_reports=%d case_open=%v\n", st.Global, st.Exposure, st.PendingReports, st.CaseOpen)
	if st.Outcome != nil {
		fmt.Fprintf(out, "ended: %s (%s) at %.1fs\n", st.Outcome.Cause, st.Outcome.Reason, st.Outcome.At)
	} else if st.Ended {
		fmt.Fprintln(out, "ended")
	}
	fmt.Fprintln(out, st.Summary.String())

	susp := map[string]float64{}
	for _, s := range st.Suspicion {
		susp[s.AgentID] = s.Value
	}
	for _, a := range st.Agents {
		kind := "npc"
		if a.Human {
			kind = "human"
		}
		line := fmt.Sprintf("  %-10s %-8s %-6s %-8s", a.ID, a.Role, kind, a.Place)
		if v, ok := susp[a.ID]; ok {
			line += fmt.Sprintf(" suspicion=%.0f", v)
		}
		if a.Planner != "" {
			line += fmt.Sprintf(" planner=%s", a.Planner)
		}
		fmt.Fprintln(out, line)
	}

	p := st.Planning
	fmt.Fprintf(out, "planning: requests=%d completed=%d fallbacks=%d stale=%d rejected=%d executed=%d\n",
		p.Requests, p.Completed, p.Fallbacks, p.Stale, p.Rejected, p.Executed)
	fmt.Fprintf(out, "log: size=%d/%d appended=%d evicted=%d\n", st.Log.Size, st.Log.Capacity, st.Log.Appended, st.Log.Evicted)
	if st.Index != nil {
		fmt.Fprintf(out, "index: queue=%d/%d written=%d dropped=%d failed=%d\n",
			st.Index.QueueDepth, st.Index.QueueCapacity, st.Index.Written, st.Index.Dropped, st.Index.Failed)
	}
}
