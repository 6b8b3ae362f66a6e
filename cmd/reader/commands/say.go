package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	ws "nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"voicereader/agent/internal/auth"
	"voicereader/agent/internal/clientws"
	"voicereader/agent/internal/speech"
)

var (
	sayURL     string
	sayToken   string
	saySecret  string
	sayGap     time.Duration
	sayTimeout time.Duration
)

var sayCmd = &cobra.Command{
	Use:   "say <phrase>...",
	Short: "Send phrases to a running server as recognized speech",
	Long: `Send phrases to a running server as recognized speech.

Attaches as the client, announces voice support, turns listening on and sends
each phrase as a final recognition result, printing every message the server
sends back. It answers engine commands like a browser would: a stopped
recognizer reports its end, and spoken system messages complete at once.

Examples:
  reader say science "chapter one" "read summary"
  reader say --secret $CLIENT_TOKEN_SECRET "help"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), sayTimeout)
		defer cancel()

		target := sayURL
		token := sayToken
		if token == "" && saySecret != "" {
			// tokens are bound to the session id
			sid, err := peekSessionID(ctx, target)
			if err != nil {
				return err
			}
			now := time.Now()
			if token, err = auth.GenerateClientToken(saySecret, sid, now, now.Add(time.Hour)); err != nil {
				return err
			}
		}
		if token != "" {
			target += "?token=" + url.QueryEscape(token)
		}

		c, _, err := ws.Dial(ctx, target, nil)
		if err != nil {
			return fmt.Errorf("dial %s: %w", sayURL, err)
		}
		defer c.Close(ws.StatusNormalClosure, "")

		out := cmd.OutOrStdout()
		go func() {
			for {
				var msg clientws.Message
				if err := wsjson.Read(ctx, c, &msg); err != nil {
					return
				}
				printMessage(out, msg)
				if reply, ok := engineReply(msg); ok {
					_ = wsjson.Write(ctx, c, reply)
				}
			}
		}()

		hello := map[string]any{
			"voice_supported": true,
			"voices":          []speech.Voice{{Name: "Say Female", Lang: "en-IN"}},
			"user_agent":      "reader-say",
		}
		if err := sendMessage(ctx, c, clientws.TypeHello, hello); err != nil {
			return err
		}
		if err := sendMessage(ctx, c, clientws.TypeListen, map[string]bool{"on": true}); err != nil {
			return err
		}
		for _, phrase := range args {
			time.Sleep(sayGap)
			fmt.Fprintf(out, "[%s] -> %q\n", time.Now().Format("15:04:05.000"), phrase)
			result := speech.ResultEvent{Results: []speech.Result{{
				Final:        true,
				Alternatives: []speech.Alternative{{Transcript: phrase, Confidence: 1}},
			}}}
			if err := sendMessage(ctx, c, clientws.TypeResult, result); err != nil {
				return err
			}
		}
		time.Sleep(sayGap)
		return nil
	},
}

// peekSessionID asks the REST API next to the websocket for the session id.
func peekSessionID(ctx context.Context, wsURL string) (string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "", err
	}
	u.Scheme = strings.Replace(u.Scheme, "ws", "http", 1)
	u.Path = strings.TrimSuffix(u.Path, "/ws") + "/session"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("session lookup: %w", err)
	}
	defer resp.Body.Close()
	var snap struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil || snap.SessionID == "" {
		return "", fmt.Errorf("cannot learn session id from %s; pass --token instead", u)
	}
	return snap.SessionID, nil
}

func sendMessage(ctx context.Context, c *ws.Conn, typ string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := clientws.Message{Type: typ, TsMs: time.Now().UnixMilli(), Payload: b}
	if err := wsjson.Write(ctx, c, msg); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

// engineReply is what a browser's engines would report back for msg.
func engineReply(msg clientws.Message) (clientws.Message, bool) {
	switch msg.Type {
	case clientws.TypeRecognizerStop:
		return clientws.Message{Type: clientws.TypeRecognitionEnd, TsMs: time.Now().UnixMilli()}, true
	case clientws.TypeSpeak:
		var u speech.Utterance
		if err := json.Unmarshal(msg.Payload, &u); err != nil || u.Kind != speech.KindSystem {
			return clientws.Message{}, false
		}
		return clientws.Message{Type: clientws.TypeUtteranceEnd, TsMs: time.Now().UnixMilli(), UtteranceID: u.ID}, true
	}
	return clientws.Message{}, false
}

func printMessage(w io.Writer, msg clientws.Message) {
	ts := time.Now().Format("15:04:05.000")
	switch msg.Type {
	case clientws.TypeState:
		var snap struct {
			View     string `json:"view"`
			Playback string `json:"playback"`
			Segment  string `json:"segment"`
			Feedback string `json:"feedback"`
		}
		_ = json.Unmarshal(msg.Payload, &snap)
		fmt.Fprintf(w, "[%s] <- state: view=%s playback=%s %s feedback=%q\n", ts, snap.View, snap.Playback, snap.Segment, snap.Feedback)
	case clientws.TypeSpeak:
		var u speech.Utterance
		_ = json.Unmarshal(msg.Payload, &u)
		text := u.Text
		if len(text) > 80 {
			text = text[:77] + "..."
		}
		fmt.Fprintf(w, "[%s] <- speak(%s): %q\n", ts, u.Kind, text)
	case clientws.TypeError:
		fmt.Fprintf(w, "[%s] <- error: %s\n", ts, string(msg.Payload))
	default:
		fmt.Fprintf(w, "[%s] <- %s\n", ts, msg.Type)
	}
}

func init() {
	sayCmd.Flags().StringVar(&sayURL, "url", "ws://localhost:8080/v1/ws", "client websocket URL")
	sayCmd.Flags().StringVar(&sayToken, "token", "", "client token")
	sayCmd.Flags().StringVar(&saySecret, "secret", "", "mint a client token with this secret")
	sayCmd.Flags().DurationVar(&sayGap, "gap", 1500*time.Millisecond, "pause before each phrase")
	sayCmd.Flags().DurationVar(&sayTimeout, "timeout", 30*time.Second, "overall timeout")
}
