package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
)

const defaultBaseURL = "http://localhost:3000/api/studio/v1"

// frame mirrors the streamed event shape
type frame struct {
	Type      string `json:"type"`
	SessionId string `json:"session_id"`
	Stage     string `json:"stage"`
	Message   string `json:"message"`
	Text      string `json:"text"`
	IsNew     bool   `json:"is_new"`
	Done      *struct {
		Outcome  string   `json:"outcome"`
		Signal   string   `json:"signal"`
		Reply    string   `json:"reply"`
		Caption  string   `json:"caption"`
		Hashtags []string `json:"hashtags"`
		Assets   []struct {
			Kind string `json:"kind"`
			Path string `json:"path"`
		} `json:"assets"`
	} `json:"done"`
}

type chatRequest struct {
	SessionId string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	baseURL := os.Getenv("STUDIO_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	token := mintToken(os.Getenv("JWT_SECRET"), "simulation-user")

	color.Cyan("=== Content Studio Simulation Client ===")

	turns := []string{
		"My company name is Sunrise Bakery, we bake sourdough for the neighbourhood.",
		"Create an image of a fresh loaf on a rustic table at dawn",
		"Make the lighting warmer",
		"Write a caption for it",
		"Plan a campaign for March with 3 posts per week for 2 weeks",
		"next week",
	}

	sessionId := ""
	for _, text := range turns {
		color.Yellow("\nUSER: %s", text)
		start := time.Now()
		id, err := streamTurn(baseURL, token, sessionId, text)
		if err != nil {
			color.Red("Failed: %v", err)
			continue
		}
		sessionId = id
		color.White("(%v)", time.Since(start).Round(time.Millisecond))
	}
}

func mintToken(secret, userId string) string {
	if secret == "" {
		return ""
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userId,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func streamTurn(baseURL, token, sessionId, text string) (string, error) {
	body, _ := json.Marshal(chatRequest{SessionId: sessionId, Message: text})
	req, err := http.NewRequest(http.MethodPost, baseURL+"/chat/stream", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var f frame
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &f); err != nil {
			color.Red("bad frame: %v", err)
			continue
		}
		switch f.Type {
		case "session":
			sessionId = f.SessionId
			if f.IsNew {
				color.Cyan("session %s (new, stage %s)", f.SessionId, f.Stage)
			}
		case "status":
			color.Blue("… %s", f.Message)
		case "text":
			fmt.Print(f.Text)
		case "done":
			fmt.Println()
			if f.Done == nil {
				continue
			}
			color.Green("[%s/%s] %s", f.Done.Outcome, f.Done.Signal, f.Done.Reply)
			for _, a := range f.Done.Assets {
				color.Magenta("  %s: %s", a.Kind, a.Path)
			}
			if f.Done.Caption != "" {
				color.Magenta("  caption: %s %s", f.Done.Caption, strings.Join(f.Done.Hashtags, " "))
			}
		case "error":
			fmt.Println()
			color.Red("error: %s", f.Message)
		}
	}
	return sessionId, scanner.Err()
}
