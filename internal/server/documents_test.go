package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/joseph-ayodele/docclass/constants"
	"github.com/joseph-ayodele/docclass/internal/classifier"
	"github.com/joseph-ayodele/docclass/internal/common"
	"github.com/joseph-ayodele/docclass/internal/extract"
	"github.com/joseph-ayodele/docclass/internal/pdftext"
	"github.com/joseph-ayodele/docclass/internal/pipeline"
	"github.com/joseph-ayodele/docclass/internal/repository"
	"github.com/joseph-ayodele/docclass/internal/textnorm"
)

type textBackend struct{}

func (textBackend) Name() string { return "text" }

func (textBackend) Open(data []byte) (pdftext.Document, error) {
	if bytes.HasPrefix(data, []byte("BROKEN")) {
		return nil, errors.New("malformed xref table")
	}
	return onePage(string(data)), nil
}

type onePage string

func (onePage) NumPages() int                 { return 1 }
func (p onePage) PageText(int) (string, error) { return string(p), nil }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)) }

func slipText(i int) string {
	return fmt.Sprintf("Cedente\nEMPRESA %d LTDA\nAgência/Código do Cedente\n%04d/12345-6\n"+
		"Vencimento\n%02d/05/2024\nValor do Documento\n%d,00\nSacado\nCLIENTE %d", i, i, i%28+1, 100+i, i)
}

func invoiceText(i int) string {
	return fmt.Sprintf("DANFE Documento Auxiliar da Nota Fiscal Eletrônica\nNFe No %d Série 1\n"+
		"Natureza da Operação VENDA DE MERCADORIA\nDados do Emitente\nRazão Social FORNECEDOR %d SA", 5000+i, i)
}

type env struct {
	client  *DocumentServiceClient
	health  healthpb.HealthClient
	proc    *pipeline.Processor
	results repository.ResultRepository
}

func setup(t *testing.T, cfg common.ServerConfig) *env {
	t.Helper()
	var texts []string
	var labels []constants.Label
	for i := 0; i < 6; i++ {
		texts = append(texts, textnorm.Normalize(slipText(i)), textnorm.Normalize(invoiceText(i)))
		labels = append(labels, constants.PaymentSlip, constants.Invoice)
	}
	bundle, err := classifier.Fit(texts, labels, classifier.Config{Alpha: 1})
	if err != nil {
		t.Fatal(err)
	}
	ex, err := pdftext.NewExtractor(pdftext.Config{}, quiet(), pdftext.WithBackends(textBackend{}))
	if err != nil {
		t.Fatal(err)
	}
	d, err := extract.Default()
	if err != nil {
		t.Fatal(err)
	}

	db, err := repository.Open(context.Background(), common.DatabaseConfig{
		Driver:      "sqlite",
		DSN:         "file:" + filepath.Join(t.TempDir(), "server.db") + "?_pragma=busy_timeout(5000)",
		DialTimeout: 5 * time.Second,
	}, quiet())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	results := repository.NewResultRepository(db, quiet())

	// 0.6 leaves documents with no known terms (posterior 0.5) unrecognized
	proc := pipeline.NewProcessor(quiet(), ex, classifier.NewHolder(bundle), d, 0.6, pipeline.WithResults(results))
	srv, _ := NewGRPCServer(NewDocumentService(proc, results, cfg, quiet()), cfg.MaxDocumentBytes, quiet())

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &env{
		client:  NewDocumentServiceClient(conn),
		health:  healthpb.NewHealthClient(conn),
		proc:    proc,
		results: results,
	}
}

func defaultConfig() common.ServerConfig {
	return common.ServerConfig{InferenceTimeout: 10 * time.Second, MaxDocumentBytes: 1 << 16}
}

func TestClassifyRPC(t *testing.T) {
	e := setup(t, defaultConfig())
	resp, err := e.client.Classify(context.Background(), []byte(slipText(8)))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	m := resp.AsMap()
	if m["label"] != "PAYMENT_SLIP" {
		t.Errorf("label = %v", m["label"])
	}
	if c, _ := m["confidence"].(float64); c < 0.6 || c > 1 {
		t.Errorf("confidence = %v", m["confidence"])
	}
}

func TestExtractRPC(t *testing.T) {
	e := setup(t, defaultConfig())
	resp, err := e.client.Extract(context.Background(), []byte(invoiceText(3)))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	m := resp.AsMap()
	if m["label"] != "INVOICE" {
		t.Fatalf("label = %v", m["label"])
	}
	fields, _ := m["fields"].(map[string]any)
	dados, _ := fields["Dados da Nota Fiscal"].(map[string]any)
	if dados["Numero da Nota Fiscal"] != "5003" || dados["Serie"] != "1" {
		t.Errorf("Dados da Nota Fiscal = %v", dados)
	}
}

func TestRPCErrorCodes(t *testing.T) {
	e := setup(t, defaultConfig())
	tests := []struct {
		name string
		pdf  []byte
		want codes.Code
	}{
		{"empty", nil, codes.InvalidArgument},
		{"too large", bytes.Repeat([]byte("a"), 1<<16+1), codes.InvalidArgument},
		{"unreadable", []byte("BROKEN pdf"), codes.InvalidArgument},
		{"low confidence", []byte("zzzz qqqq wwww"), codes.FailedPrecondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.client.Extract(context.Background(), tt.pdf)
			if got := status.Code(err); got != tt.want {
				t.Errorf("code = %s, want %s (%v)", got, tt.want, err)
			}
		})
	}
}

func TestInferenceBudget(t *testing.T) {
	cfg := defaultConfig()
	cfg.InferenceTimeout = time.Nanosecond
	e := setup(t, cfg)
	_, err := e.client.Classify(context.Background(), []byte(slipText(1)))
	if got := status.Code(err); got != codes.DeadlineExceeded {
		t.Errorf("code = %s, want DeadlineExceeded (%v)", got, err)
	}
}

func TestGetResultRPC(t *testing.T) {
	e := setup(t, defaultConfig())
	ctx := context.Background()

	p := filepath.Join(t.TempDir(), "boleto.pdf")
	if err := os.WriteFile(p, []byte(slipText(2)), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := e.proc.ProcessFile(ctx, p)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := e.client.GetResult(ctx, out.ID.String())
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	m := resp.AsMap()
	if m["status"] != "EXTRACTED" || m["source_path"] != p {
		t.Errorf("result = %v", m)
	}
	fields, _ := m["fields"].(map[string]any)
	cedente, _ := fields["Cedente"].(map[string]any)
	if cedente["Nome"] != "EMPRESA 2 LTDA" {
		t.Errorf("Cedente = %v", cedente)
	}

	if _, err := e.client.GetResult(ctx, "not-a-uuid"); status.Code(err) != codes.InvalidArgument {
		t.Errorf("bad id code = %s", status.Code(err))
	}
	if _, err := e.client.GetResult(ctx, "8f14e45f-ceea-467f-a0e6-4f7e2b4c9b11"); status.Code(err) != codes.NotFound {
		t.Errorf("unknown id code = %s", status.Code(err))
	}
}

func TestHealth(t *testing.T) {
	e := setup(t, defaultConfig())
	resp, err := e.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatal(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %s", resp.GetStatus())
	}
}
