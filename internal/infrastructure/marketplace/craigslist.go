package marketplace

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/crosslist/backend/internal/domain/listing"
)

const (
	defaultCraigslistTimeout = 90 * time.Second
	defaultCraigslistSite    = "sfbay"
)

// Errors for Craigslist configuration
var (
	ErrCraigslistConfigMissingSite = errors.New("craigslist: site is required")
)

// CraigslistConfig contains configuration for the Craigslist browser adapter
type CraigslistConfig struct {
	// Site is the regional subdomain, e.g. sfbay or newyork
	Site string
	// Category is the for-sale posting category slug
	Category string
	// DefaultTimeout for one posting flow
	DefaultTimeout time.Duration
	// RemoteURL is the URL of a remote Chrome instance (optional)
	// If empty, chromedp launches a local browser
	RemoteURL string
	// Headless mode (default: true)
	Headless bool
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	// Logger for debug output
	Logger *zap.Logger
}

// Validate validates the Craigslist configuration and fills in defaults
func (c *CraigslistConfig) Validate() error {
	if c.Site == "" {
		c.Site = defaultCraigslistSite
	}
	if c.Site == "" {
		return ErrCraigslistConfigMissingSite
	}
	if c.Category == "" {
		c.Category = "fso" // for sale by owner
	}
	if c.DefaultTimeout == 0 {
		c.DefaultTimeout = defaultCraigslistTimeout
	}
	return nil
}

// postURLPattern extracts the posting ID from a published listing URL
var postURLPattern = regexp.MustCompile(`/(\d+)\.html`)

// CraigslistAdapter implements the PlatformAdapter interface for Craigslist.
// Craigslist has no API, so postings are driven through a headless browser.
// Only create and end are supported; live postings cannot be edited or read
// back reliably, so update is declared unsupported and reads report an
// unknown status.
type CraigslistAdapter struct {
	config      *CraigslistConfig
	credentials CredentialSource
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewCraigslistAdapter creates a new Craigslist browser adapter
func NewCraigslistAdapter(config *CraigslistConfig, credentials CredentialSource) (*CraigslistAdapter, error) {
	if config == nil {
		config = &CraigslistConfig{}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	adapter := &CraigslistAdapter{
		config:      config,
		credentials: credentials,
		logger:      logger,
	}
	adapter.initAllocator()
	return adapter, nil
}

// initAllocator initializes the Chrome allocator
func (a *CraigslistAdapter) initAllocator() {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", a.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true), // Important for Docker
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
	)
	if a.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}

	if a.config.RemoteURL != "" {
		a.allocCtx, a.allocCancel = chromedp.NewRemoteAllocator(context.Background(), a.config.RemoteURL)
	} else {
		a.allocCtx, a.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}
}

// Close releases the browser allocator
func (a *CraigslistAdapter) Close() error {
	if a.allocCancel != nil {
		a.allocCancel()
	}
	return nil
}

// Platform returns the marketplace this adapter handles
func (a *CraigslistAdapter) Platform() listing.Platform {
	return listing.PlatformCraigslist
}

// Capabilities declares which operations the adapter supports
func (a *CraigslistAdapter) Capabilities() listing.CapabilitySet {
	return listing.CapabilitySet{
		listing.CapabilityCreate: true,
		listing.CapabilityEnd:    true,
	}
}

// CreateListing drives the posting form and returns the published post ID
func (a *CraigslistAdapter) CreateListing(ctx context.Context, req listing.ListingRequest) (*listing.CreateResult, error) {
	creds, err := a.credentials.Credentials(ctx, listing.PlatformCraigslist)
	if err != nil {
		return nil, err
	}

	browserCtx, cancel := a.newBrowserContext(ctx)
	defer cancel()

	postURL := fmt.Sprintf("https://post.craigslist.org/c/%s/%s", a.config.Site, a.config.Category)

	var publishedURL string
	err = chromedp.Run(browserCtx,
		a.loginTasks(creds),
		chromedp.Navigate(postURL),
		chromedp.WaitVisible(`#PostingTitle`, chromedp.ByID),
		chromedp.SendKeys(`#PostingTitle`, req.Title, chromedp.ByID),
		chromedp.SendKeys(`#Ask`, req.Price.StringFixed(0), chromedp.ByID),
		chromedp.SendKeys(`#PostingBody`, req.Description, chromedp.ByID),
		chromedp.Click(`button.submit-onetime`, chromedp.ByQuery),
		chromedp.WaitVisible(`ul.postinglist a`, chromedp.ByQuery),
		chromedp.AttributeValue(`ul.postinglist a`, "href", &publishedURL, nil, chromedp.ByQuery),
	)
	if err != nil {
		return nil, a.browserError(ctx, err)
	}

	postID := extractPostID(publishedURL)
	if postID == "" {
		return nil, listing.NewAdapterError(listing.PlatformCraigslist, listing.AdapterErrCodeUnknown,
			"posting submitted but no post ID found in confirmation page")
	}

	a.logger.Info("craigslist posting published",
		zap.String("post_id", postID),
		zap.String("site", a.config.Site))

	return &listing.CreateResult{
		PlatformListingID: postID,
		URL:               publishedURL,
		Raw:               fmt.Sprintf(`{"post_id":%q,"url":%q}`, postID, publishedURL),
	}, nil
}

// UpdateListing is not supported; Craigslist postings are delete-and-repost
func (a *CraigslistAdapter) UpdateListing(_ context.Context, _ string, _ listing.ListingUpdate) (*listing.UpdateResult, error) {
	return nil, listing.NewUnsupportedOperationError(listing.PlatformCraigslist, listing.CapabilityUpdate)
}

// EndListing deletes the posting through the account management page.
// A posting that is already gone counts as ended.
func (a *CraigslistAdapter) EndListing(ctx context.Context, platformListingID, _ string) (*listing.EndResult, error) {
	creds, err := a.credentials.Credentials(ctx, listing.PlatformCraigslist)
	if err != nil {
		return nil, err
	}

	browserCtx, cancel := a.newBrowserContext(ctx)
	defer cancel()

	manageURL := fmt.Sprintf("https://post.craigslist.org/manage/%s", platformListingID)

	var pageText string
	err = chromedp.Run(browserCtx,
		a.loginTasks(creds),
		chromedp.Navigate(manageURL),
		chromedp.Text(`body`, &pageText, chromedp.ByQuery),
	)
	if err != nil {
		return nil, a.browserError(ctx, err)
	}

	if strings.Contains(pageText, "has been deleted") || strings.Contains(pageText, "not found") {
		return &listing.EndResult{EndedAt: time.Now().UTC()}, nil
	}

	err = chromedp.Run(browserCtx,
		chromedp.Click(`input[value="Delete this Posting"]`, chromedp.ByQuery),
		chromedp.WaitVisible(`body`, chromedp.ByQuery),
	)
	if err != nil {
		return nil, a.browserError(ctx, err)
	}

	a.logger.Info("craigslist posting deleted",
		zap.String("post_id", platformListingID),
		zap.String("site", a.config.Site))

	return &listing.EndResult{EndedAt: time.Now().UTC()}, nil
}

// GetListing has no reliable read path; report an unknown status so the
// reconciler skips drift detection for this platform
func (a *CraigslistAdapter) GetListing(_ context.Context, platformListingID string) (*listing.RemoteListing, error) {
	return &listing.RemoteListing{
		PlatformListingID: platformListingID,
		Status:            listing.RemoteStatusUnknown,
	}, nil
}

// newBrowserContext creates a tab context bounded by the flow timeout
func (a *CraigslistAdapter) newBrowserContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeoutCtx, timeoutCancel := context.WithTimeout(ctx, a.config.DefaultTimeout)
	browserCtx, browserCancel := chromedp.NewContext(timeoutCtx)
	return browserCtx, func() {
		browserCancel()
		timeoutCancel()
	}
}

// loginTasks signs into the Craigslist account
func (a *CraigslistAdapter) loginTasks(creds listing.Credentials) chromedp.Tasks {
	return chromedp.Tasks{
		chromedp.Navigate("https://accounts.craigslist.org/login"),
		chromedp.WaitVisible(`#inputEmailHandle`, chromedp.ByID),
		chromedp.SendKeys(`#inputEmailHandle`, creds.Username, chromedp.ByID),
		chromedp.SendKeys(`#inputPassword`, creds.Password, chromedp.ByID),
		chromedp.Click(`#login`, chromedp.ByID),
		chromedp.WaitVisible(`body`, chromedp.ByQuery),
	}
}

// browserError classifies a chromedp failure
func (a *CraigslistAdapter) browserError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.Canceled) {
		return transportError(listing.PlatformCraigslist, err)
	}
	adapterErr := listing.NewAdapterError(listing.PlatformCraigslist, listing.AdapterErrCodeUnknown, err.Error())
	return adapterErr
}

func extractPostID(publishedURL string) string {
	matches := postURLPattern.FindStringSubmatch(publishedURL)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

var _ listing.PlatformAdapter = (*CraigslistAdapter)(nil)
