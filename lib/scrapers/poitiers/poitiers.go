package poitiers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"poitiers-connector/lib/htmlutil"
	"poitiers-connector/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/poitiers")

// Vendor is the provider name stamped into document metadata.
const Vendor = "Mutuelle de Poitiers Assurances"

// DefaultBaseUrl is the origin of the customer portal.
const DefaultBaseUrl = "https://espace-perso.assurance-mutuelle-poitiers.fr"

var (
	ErrLoginFailed     = errors.New("failed to login to your account")
	ErrBadCredentials  = fmt.Errorf("%w: bad credentials", ErrLoginFailed)
	ErrMissingPassword = fmt.Errorf("%w: missing password", ErrLoginFailed)
	ErrUnknownLogin    = fmt.Errorf("%w: unrecognized login response", ErrLoginFailed)
)

// failure wordings shown by the portal, which answers 200 either way
const (
	badCredentialsMsg  = "Les identifiants sont incorrects, merci de les saisir à nouveau"
	missingPasswordMsg = "Veuillez entrer votre mot de passe"
)

// Metadata mirrors the document attributes recorded by the storage side.
type Metadata struct {
	CarbonCopy     bool   `json:"carbonCopy"`
	Classification string `json:"classification,omitempty"`
	ContentAuthor  string `json:"contentAuthor,omitempty"`
	Title          string `json:"title,omitempty"`
}

// File is one downloadable document, normalized and ready to persist.
// FileUrl is absolute and only reachable with the logged-in session.
type File struct {
	Filename string
	FileUrl  string
	SubPath  string
	Metadata Metadata
}

// Contract is one insurance policy listed on the account. SubUrl is the
// site-relative link to its detail page.
type Contract struct {
	Name   string
	SubUrl string
	Type   string
}

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client
}

type ClientOptions struct {
	BaseUrl string
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/poitiers/http")

	c := &Client{
		BaseUrl: baseUrl,
		Http:    client,
	}
	return c, nil
}

// Login submits the portal's login form and keeps the session cookies on the
// client for every later fetch. Success and the three failure reasons are
// decided purely from the page content: the portal returns 200 even when
// credentials are rejected.
func (c *Client) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"_username":    username,
			"_password":    password,
			"_remember_me": "1",
		}).
		Post("/identification/check")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit login form")
		return err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse login response html")
		return err
	}

	// a logged-in page always carries the logout anchor
	if doc.Find(`a#modal-deconnexion`).Length() > 0 {
		return nil
	}

	body := res.String()
	switch {
	case strings.Contains(body, badCredentialsMsg):
		slog.ErrorContext(ctx, "login rejected", "reason", "bad credentials")
		span.SetStatus(codes.Error, ErrBadCredentials.Error())
		return ErrBadCredentials
	case strings.Contains(body, missingPasswordMsg):
		slog.ErrorContext(ctx, "login rejected", "reason", "missing password")
		span.SetStatus(codes.Error, ErrMissingPassword.Error())
		return ErrMissingPassword
	}

	slog.ErrorContext(ctx, "login rejected",
		"reason", "unknown",
		"status_code", res.StatusCode(),
		"body", htmlutil.Excerpt(body, 300),
	)
	span.SetStatus(codes.Error, ErrUnknownLogin.Error())
	return ErrUnknownLogin
}

func (c *Client) fetchDocument(ctx context.Context, path string) (*goquery.Document, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
}
