package mint

import "context"

// Metadata is the certificate content sent to a provider. It is built
// deterministically from the order, so a retried attempt is
// indistinguishable from the first one at the provider side.
type Metadata struct {
	OrderID     string `json:"order_id"`
	ProductName string `json:"product_name"`
	Artisan     string `json:"artisan"`
	IssueDate   string `json:"issue_date"`
	Recipient   string `json:"recipient"`
}

// Receipt is what a successful mint returns.
type Receipt struct {
	CertificateID string
	TxRef         string
}

// Provider issues one certificate for the given metadata. The orchestrator
// walks an ordered list of providers and uses the first that succeeds,
// independent of how many are configured.
type Provider interface {
	Name() string
	Mint(ctx context.Context, meta Metadata) (*Receipt, error)
}
