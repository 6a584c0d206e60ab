package wechatpay

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"testing"
)

const testAPIV3Key = "0123456789abcdef0123456789abcdef"

func testPrivateKeyPEM(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key failed: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal pkcs8 failed: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		AppID:      "wx1234567890",
		MchID:      "1900000001",
		SerialNo:   "SERIAL001",
		PrivateKey: testPrivateKeyPEM(t),
		APIV3Key:   testAPIV3Key,
	}
}

func TestValidateConfig(t *testing.T) {
	cfg := testConfig(t)
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	broken := cfg
	broken.AppID = ""
	if err := ValidateConfig(broken); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for empty appid, got %v", err)
	}

	broken = cfg
	broken.APIV3Key = "tooshort"
	if err := ValidateConfig(broken); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for short api v3 key, got %v", err)
	}

	broken = cfg
	broken.PrivateKey = "not a key"
	if err := ValidateConfig(broken); err == nil {
		t.Fatalf("expected error for broken private key")
	}
}

func TestBuildFormNative(t *testing.T) {
	inst := &Instance{cfg: testConfig(t)}
	form, err := inst.BuildForm(ChannelNative, FormData{
		OutTradeNo:  "ORDER1",
		Description: "测试商品",
		TotalFen:    100,
		NotifyURL:   "https://pay.example.com/pay/wxpay_notify/wx1234567890",
	})
	if err != nil {
		t.Fatalf("build native form failed: %v", err)
	}
	if form.Scene != nil {
		t.Fatalf("native form should not carry scene info")
	}
}

func TestBuildFormH5RequiresScene(t *testing.T) {
	inst := &Instance{cfg: testConfig(t)}
	form, err := inst.BuildForm(ChannelH5, FormData{
		OutTradeNo: "ORDER1",
		TotalFen:   100,
		ClientIP:   "203.0.113.9",
		AppName:    "GOPAY",
		AppURL:     "https://pay.example.com",
	})
	if err != nil {
		t.Fatalf("build h5 form failed: %v", err)
	}
	if form.Scene == nil {
		t.Fatalf("h5 form requires scene info")
	}
	if form.Scene.PayerClientIP != "203.0.113.9" {
		t.Fatalf("unexpected client ip: %s", form.Scene.PayerClientIP)
	}
}

func TestBuildFormH5DefaultsClientIP(t *testing.T) {
	inst := &Instance{cfg: testConfig(t)}
	form, err := inst.BuildForm(ChannelH5, FormData{
		OutTradeNo: "ORDER1",
		TotalFen:   100,
	})
	if err != nil {
		t.Fatalf("build h5 form failed: %v", err)
	}
	if form.Scene == nil || form.Scene.PayerClientIP != "127.0.0.1" {
		t.Fatalf("missing client ip should fall back to loopback: %+v", form.Scene)
	}
}

func TestBuildFormOnlyNativeForcesNative(t *testing.T) {
	cfg := testConfig(t)
	cfg.OnlyNative = true
	inst := &Instance{cfg: cfg}
	form, err := inst.BuildForm(ChannelH5, FormData{
		OutTradeNo: "ORDER1",
		TotalFen:   100,
		ClientIP:   "203.0.113.9",
	})
	if err != nil {
		t.Fatalf("build form failed: %v", err)
	}
	if form.Scene != nil {
		t.Fatalf("only_native must force native, scene=%+v", form.Scene)
	}
}

func TestBuildFormRejectsInvalidInput(t *testing.T) {
	inst := &Instance{cfg: testConfig(t)}
	if _, err := inst.BuildForm(ChannelNative, FormData{TotalFen: 100}); !errors.Is(err, ErrFormInvalid) {
		t.Fatalf("expected ErrFormInvalid for missing out_trade_no, got %v", err)
	}
	if _, err := inst.BuildForm(ChannelNative, FormData{OutTradeNo: "X", TotalFen: 0}); !errors.Is(err, ErrFormInvalid) {
		t.Fatalf("expected ErrFormInvalid for zero total, got %v", err)
	}
	if _, err := inst.BuildForm("jsapi", FormData{OutTradeNo: "X", TotalFen: 1}); !errors.Is(err, ErrFormInvalid) {
		t.Fatalf("expected ErrFormInvalid for unknown channel, got %v", err)
	}
}

func TestConvertAmountToFen(t *testing.T) {
	cases := []struct {
		amount  string
		wantFen int64
		wantErr bool
	}{
		{"1.00", 100, false},
		{"0.01", 1, false},
		{"19.90", 1990, false},
		{"100", 10000, false},
		{" 2.50 ", 250, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"0.001", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, c := range cases {
		fen, err := ConvertAmountToFen(c.amount)
		if c.wantErr {
			if err == nil {
				t.Fatalf("ConvertAmountToFen(%q) expected error", c.amount)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ConvertAmountToFen(%q) failed: %v", c.amount, err)
		}
		if fen != c.wantFen {
			t.Fatalf("ConvertAmountToFen(%q)=%d want %d", c.amount, fen, c.wantFen)
		}
	}
}

func TestDecryptResourceRoundTrip(t *testing.T) {
	plaintext := `{"out_trade_no":"ORDER1","trade_state":"SUCCESS"}`
	nonce := "abcdef123456"
	associatedData := "transaction"

	block, err := aes.NewCipher([]byte(testAPIV3Key))
	if err != nil {
		t.Fatalf("new cipher failed: %v", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, len(nonce))
	if err != nil {
		t.Fatalf("new gcm failed: %v", err)
	}
	sealed := gcm.Seal(nil, []byte(nonce), []byte(plaintext), []byte(associatedData))
	ciphertext := base64.StdEncoding.EncodeToString(sealed)

	inst := &Instance{cfg: Config{APIV3Key: testAPIV3Key}}
	got, err := inst.DecryptResource(associatedData, nonce, ciphertext)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if got != plaintext {
		t.Fatalf("decrypt mismatch:\n got=%s\nwant=%s", got, plaintext)
	}

	if _, err := inst.DecryptResource(associatedData, nonce, "broken"); !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid for broken ciphertext, got %v", err)
	}
}

func TestManagerFiltersAndCaches(t *testing.T) {
	cfg := testConfig(t)
	m := NewManager([]Config{cfg, {AppID: "  "}}, nil)
	if !m.Enabled() {
		t.Fatalf("manager with one valid config should be enabled")
	}

	inst1, err := m.InstanceByAppID(cfg.AppID)
	if err != nil {
		t.Fatalf("instance by appid failed: %v", err)
	}
	inst2, err := m.InstanceByAppID(cfg.AppID)
	if err != nil {
		t.Fatalf("instance by appid failed: %v", err)
	}
	if inst1 != inst2 {
		t.Fatalf("instances should be cached per appid")
	}

	if _, err := m.InstanceByAppID("wx_unknown"); !errors.Is(err, ErrNoInstance) {
		t.Fatalf("expected ErrNoInstance for unknown appid, got %v", err)
	}

	empty := NewManager(nil, nil)
	if empty.Enabled() {
		t.Fatalf("empty manager should be disabled")
	}
	if _, err := empty.Instance(); !errors.Is(err, ErrNoInstance) {
		t.Fatalf("expected ErrNoInstance, got %v", err)
	}
}

func TestNormalizeClientIP(t *testing.T) {
	if got := normalizeClientIP("203.0.113.9"); got != "203.0.113.9" {
		t.Fatalf("valid ip changed: %s", got)
	}
	if got := normalizeClientIP(""); got != "127.0.0.1" {
		t.Fatalf("empty ip should default to loopback: %s", got)
	}
	if got := normalizeClientIP("not-an-ip"); got != "127.0.0.1" {
		t.Fatalf("invalid ip should default to loopback: %s", got)
	}
	if got := normalizeClientIP("203.0.113.9:443"); got != "203.0.113.9" {
		t.Fatalf("host:port should strip the port: %s", got)
	}
}
