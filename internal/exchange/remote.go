package exchange

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
)

// RemoteExecutor forwards instructions to an HTTP execution endpoint and
// applies the fill it reports through the delegation.
type RemoteExecutor struct {
	endpoint string
	client   *http.Client
}

// NewRemoteExecutor creates an executor posting to endpoint.
func NewRemoteExecutor(endpoint string) *RemoteExecutor {
	return &RemoteExecutor{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

var _ Executor = (*RemoteExecutor)(nil)

type remoteAccount struct {
	PublicKey  string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

type executeRequest struct {
	ProgramID   string          `json:"programId"`
	Accounts    []remoteAccount `json:"accounts"`
	Data        string          `json:"data"` // base64
	MaxInput    uint64          `json:"maxInput,string"`
	Destination string          `json:"destination"`
}

// Fill is what the execution endpoint reports: input taken into one of the
// router's holdings and output paid from another.
type Fill struct {
	InputAccount  string `json:"inputAccount"`
	InAmount      uint64 `json:"inAmount,string"`
	OutputAccount string `json:"outputAccount"`
	OutAmount     uint64 `json:"outAmount,string"`
}

// Execute posts ix to the endpoint and settles the returned fill.
func (e *RemoteExecutor) Execute(ctx context.Context, ix *solana.GenericInstruction, d *Delegation) error {
	data, err := ix.Data()
	if err != nil {
		return fmt.Errorf("failed to encode instruction data: %w", err)
	}
	req := executeRequest{
		ProgramID:   ix.ProgramID().String(),
		Accounts:    make([]remoteAccount, 0, len(ix.Accounts())),
		Data:        base64.StdEncoding.EncodeToString(data),
		MaxInput:    d.Remaining(),
		Destination: d.Destination().String(),
	}
	for _, acc := range ix.Accounts() {
		req.Accounts = append(req.Accounts, remoteAccount{
			PublicKey:  acc.PublicKey.String(),
			IsSigner:   acc.IsSigner,
			IsWritable: acc.IsWritable,
		})
	}

	fill, err := e.post(ctx, req)
	if err != nil {
		return err
	}

	in, err := solana.PublicKeyFromBase58(fill.InputAccount)
	if err != nil {
		return fmt.Errorf("invalid fill input account: %w", err)
	}
	out, err := solana.PublicKeyFromBase58(fill.OutputAccount)
	if err != nil {
		return fmt.Errorf("invalid fill output account: %w", err)
	}
	if err := d.Spend(ctx, in, fill.InAmount); err != nil {
		return fmt.Errorf("settle fill input: %w", err)
	}
	if err := d.Pay(ctx, out, d.Destination(), fill.OutAmount); err != nil {
		return fmt.Errorf("settle fill output: %w", err)
	}
	return nil
}

func (e *RemoteExecutor) post(ctx context.Context, body executeRequest) (*Fill, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode execute request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create execute request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute swap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("failed to execute swap: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var fill Fill
	if err := json.NewDecoder(resp.Body).Decode(&fill); err != nil {
		return nil, fmt.Errorf("failed to decode fill: %w", err)
	}
	return &fill, nil
}
