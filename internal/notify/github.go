package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-github/v66/github"
)

// GitHub comments the report on a tracking issue. It authenticates with a
// token, or as a GitHub App installation when only app credentials are set.
type GitHub struct {
	owner      string
	repo       string
	issue      int
	token      string
	appID      int64
	privateKey []byte
	httpClient *http.Client
	baseURL    *url.URL
}

// NewGitHub builds the notifier. client carries the request timeout; nil
// falls back to go-github's default client.
func NewGitHub(repo string, issue int, token string, appID int64, privateKey []byte, client *http.Client) (*GitHub, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("invalid repo format: %s", repo)
	}
	if issue <= 0 {
		return nil, fmt.Errorf("invalid issue number: %d", issue)
	}
	if token == "" && (appID == 0 || len(privateKey) == 0) {
		return nil, errors.New("github notifier needs a token or app credentials")
	}
	return &GitHub{
		owner:      owner,
		repo:       name,
		issue:      issue,
		token:      token,
		appID:      appID,
		privateKey: privateKey,
		httpClient: client,
	}, nil
}

func (g *GitHub) Name() string {
	return "github"
}

func (g *GitHub) Notify(ctx context.Context, report Report) error {
	client, err := g.client(ctx)
	if err != nil {
		return err
	}

	body := report.Markdown()
	_, _, err = client.Issues.CreateComment(ctx, g.owner, g.repo, g.issue, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		return fmt.Errorf("create issue comment on %s/%s#%d: %w", g.owner, g.repo, g.issue, err)
	}
	return nil
}

func (g *GitHub) client(ctx context.Context) (*github.Client, error) {
	if g.token != "" {
		return g.newClient(g.token), nil
	}

	appClient, err := g.getAppClient()
	if err != nil {
		return nil, err
	}

	inst, _, err := appClient.Apps.FindRepositoryInstallation(ctx, g.owner, g.repo)
	if err != nil {
		return nil, fmt.Errorf("find installation: %w", err)
	}

	token, _, err := appClient.Apps.CreateInstallationToken(ctx, inst.GetID(), nil)
	if err != nil {
		return nil, fmt.Errorf("create installation token: %w", err)
	}

	return g.newClient(token.GetToken()), nil
}

func (g *GitHub) getAppClient() (*github.Client, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": g.appID,
		"iat": time.Now().Add(-1 * time.Minute).Unix(),
		"exp": time.Now().Add(10 * time.Minute).Unix(),
	})

	key, err := jwt.ParseRSAPrivateKeyFromPEM(g.privateKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	signed, err := token.SignedString(key)
	if err != nil {
		return nil, fmt.Errorf("sign jwt: %w", err)
	}

	// the app JWT goes in the same Authorization: Bearer header as a token
	return g.newClient(signed), nil
}

func (g *GitHub) newClient(token string) *github.Client {
	client := github.NewClient(g.httpClient).WithAuthToken(token)
	if g.baseURL != nil {
		client.BaseURL = g.baseURL
	}
	return client
}
