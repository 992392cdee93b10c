package wire

import "github.com/lockbook/lockbook-core/pkg/model"

// Route paths, grounded on the teacher's chi route tree (pkg/api/router.go)
// but namespaced under /api/v1 for the lockbook-specific surface (spec §6).
const (
	RouteNewAccount               = "/api/v1/new-account"
	RouteGetPublicKey             = "/api/v1/get-public-key"
	RouteGetUpdates               = "/api/v1/get-updates"
	RouteUpsert                   = "/api/v1/upsert"
	RouteChangeDoc                = "/api/v1/change-doc"
	RouteGetDoc                   = "/api/v1/get-doc"
	RouteGetUsage                 = "/api/v1/get-usage"
	RouteUpgradeAccountStripe     = "/api/v1/upgrade-account-stripe"
	RouteUpgradeAccountGooglePlay = "/api/v1/upgrade-account-google-play"
	RouteUpgradeAccountAppStore   = "/api/v1/upgrade-account-app-store"
	RouteCancelSubscription       = "/api/v1/cancel-subscription"
	RouteGetSubscriptionInfo      = "/api/v1/get-subscription-info"
	RouteDeleteAccount            = "/api/v1/delete-account"
)

// FileDiff is one proposed change to the metadata tree: New replaces Old
// (nil Old means "this id didn't exist before"), per spec §4.3 Phase 4.
type FileDiff struct {
	Old *model.SignedFile `json:"old,omitempty"`
	New model.SignedFile  `json:"new"`
}

// NewAccountRequest registers a username bound to a public key and plants
// its root folder in one call (spec §6).
type NewAccountRequest struct {
	Username  model.Username   `json:"username"`
	PublicKey string           `json:"public_key"`
	Root      model.SignedFile `json:"root"`
}

type NewAccountResponse struct {
	LastSynced uint64 `json:"last_synced"`
}

// GetPublicKeyRequest resolves a username to its current public key, used
// when preparing a share (spec §4.7).
type GetPublicKeyRequest struct {
	Username model.Username `json:"username"`
}

type GetPublicKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// GetUpdatesRequest asks for every record changed strictly after
// SinceVersion (spec §4.3 Phase 1).
type GetUpdatesRequest struct {
	SinceVersion uint64 `json:"since_version"`
}

type GetUpdatesResponse struct {
	AsOfVersion uint64             `json:"as_of_version"`
	Records     []model.SignedFile `json:"records"`
}

// UpsertRequest submits a batch of metadata changes (spec §4.3 Phase 4).
// The server applies each diff independently: a rejection of one diff
// does not abort the others (spec §8 property "partial batch application").
type UpsertRequest struct {
	Diffs []FileDiff `json:"diffs"`
}

// UpsertResponse reports the new version and, for each index in
// Request.Diffs that the server refused, why.
type UpsertResponse struct {
	NewVersion uint64                  `json:"new_version"`
	Rejections map[int]DiffRejection `json:"rejections,omitempty"`
}

// ChangeDocRequest uploads new document content alongside the metadata
// diff that records its new DocumentHmac (spec §4.3 Phase 4, §4.4).
type ChangeDocRequest struct {
	Diff       FileDiff `json:"diff"`
	NewContent []byte   `json:"new_content"`
}

type ChangeDocResponse struct {
	NewVersion uint64 `json:"new_version"`
}

// GetDocRequest fetches a document's encrypted bytes by content address
// (spec §4.3 Phase 3); Hmac pins the exact version requested so a
// concurrent ChangeDoc elsewhere can't race the read.
type GetDocRequest struct {
	Id   model.FileId  `json:"id"`
	Hmac model.DocHmac `json:"hmac"`
}

type GetDocResponse struct {
	Content []byte `json:"content"`
}

// GetUsageRequest has no fields; usage is always reported for the caller.
type GetUsageRequest struct{}

type GetUsageResponse struct {
	UsedBytes uint64 `json:"used_bytes"`
	CapBytes  uint64 `json:"cap_bytes"`
}

type UpgradeAccountStripeRequest struct {
	PaymentMethodToken string `json:"payment_method_token"`
}

type UpgradeAccountGooglePlayRequest struct {
	PurchaseToken string `json:"purchase_token"`
	AccountId     string `json:"account_id"`
}

type UpgradeAccountAppStoreRequest struct {
	OriginalTransactionId string `json:"original_transaction_id"`
}

type UpgradeAccountResponse struct{}

type CancelSubscriptionRequest struct{}
type CancelSubscriptionResponse struct{}

type GetSubscriptionInfoRequest struct{}

type GetSubscriptionInfoResponse struct {
	Tier              string `json:"tier"`
	RenewsAt          int64  `json:"renews_at,omitempty"`
	PaymentPlatform   string `json:"payment_platform,omitempty"`
}

type DeleteAccountRequest struct{}
type DeleteAccountResponse struct{}
