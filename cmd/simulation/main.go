package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"
)

// Scripted candidate answers, weakest first so the follow-up path is exercised.
var answers = []string{
	"I fixed a bug.",
	"At my last company our checkout service kept timing out during sales. I was responsible for reliability, so I profiled the database calls, added a read replica and a cache in front of the pricing lookups. As a result p99 latency dropped by 60% and we had zero incidents the next quarter.",
	"When two teams disagreed on an API contract, my task was to unblock the release. I set up a short design review, wrote down both options with trade-offs and we agreed in one meeting. We shipped on time.",
}

type envelope struct {
	Type      string          `json:"type"`
	SessionId string          `json:"sessionId"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func main() {
	baseURL := flag.String("base", "http://localhost:3000", "API base url")
	flag.Parse()

	color.Cyan("=== Interview Simulation Client ===")

	var started struct {
		SessionId string `json:"sessionId"`
	}
	if err := post(*baseURL+"/api/session/start", map[string]interface{}{
		"jobTitle":       "Backend Engineer",
		"jobCompany":     "Acme",
		"jobDescription": "Build and operate high-traffic Go services.",
	}, &started); err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	fmt.Printf("Session Created: %s\n", started.SessionId)

	var token struct {
		SessionToken string `json:"sessionToken"`
		WebsocketUrl string `json:"websocketUrl"`
	}
	if err := post(*baseURL+"/api/session/token", map[string]string{"sessionId": started.SessionId}, &token); err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(token.WebsocketUrl+"?token="+token.SessionToken, nil)
	if err != nil {
		log.Fatalf("Failed to dial realtime endpoint: %v", err)
	}
	defer conn.Close()

	send := func(t string, data interface{}) {
		raw, _ := json.Marshal(data)
		env := envelope{Type: t, SessionId: started.SessionId, Data: raw, Timestamp: time.Now().UTC()}
		if err := conn.WriteJSON(env); err != nil {
			log.Fatalf("Write failed: %v", err)
		}
	}

	next := 0
	var asked time.Time
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			log.Printf("Connection closed: %v", err)
			break
		}

		switch env.Type {
		case "avatar_speak":
			var p struct {
				Text     string `json:"text"`
				Fallback bool   `json:"fallback"`
			}
			json.Unmarshal(env.Data, &p)
			if !asked.IsZero() {
				fmt.Printf("(answer -> question in %s)\n", time.Since(asked).Round(time.Millisecond))
			}
			color.Yellow("\nINTERVIEWER: %s", p.Text)
			send("avatar_speak", nil)

			if next >= len(answers) {
				send("session_end", map[string]string{"reason": "completed"})
				continue
			}
			fmt.Printf("CANDIDATE: %s\n", answers[next])
			send("audio_chunk", map[string]interface{}{"level": 0, "final": true})
			send("transcript_final", map[string]interface{}{"text": answers[next], "confidence": 0.95})
			asked = time.Now()
			next++

		case "turn_complete":
			var p struct {
				Scores []struct {
					Competency string `json:"competency"`
					Value      int    `json:"value"`
				} `json:"scores"`
				FollowUp struct {
					Required bool     `json:"required"`
					Reasons  []string `json:"reasons"`
				} `json:"followUp"`
			}
			json.Unmarshal(env.Data, &p)
			for _, s := range p.Scores {
				fmt.Printf("  score %-16s %d/5\n", s.Competency, s.Value)
			}
			if p.FollowUp.Required {
				color.Magenta("  follow-up: %v", p.FollowUp.Reasons)
			}

		case "error":
			color.Red("ERROR: %s", string(env.Data))

		case "session_end":
			color.Green("\nSession ended: %s", string(env.Data))
			printReport(*baseURL, started.SessionId)
			return
		}
	}
}

func printReport(baseURL, sessionID string) {
	// report generation runs after the transition commits
	for i := 0; i < 10; i++ {
		resp, err := http.Get(baseURL + "/api/report/" + sessionID)
		if err == nil && resp.StatusCode == http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			var out bytes.Buffer
			json.Indent(&out, body, "", "  ")
			fmt.Println(out.String())
			return
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(200 * time.Millisecond)
	}
	color.Red("Report not available")
}

func post(url string, body interface{}, out interface{}) error {
	jsonBody, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var res apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return err
	}
	if !res.Success {
		if res.Error != nil {
			return fmt.Errorf("%s: %s", res.Error.Code, res.Error.Message)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.Unmarshal(res.Data, out)
}
