package vault

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-resty/resty/v2"
)

const defaultServiceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// VaultClient reads secrets from Vault after a Kubernetes service account login
type VaultClient struct {
	addr         string
	kvSecretPath string
	role         string
	token        string
	tokenPath    string
	http         *resty.Client
}

type Option func(*VaultClient)

// WithServiceAccountTokenPath overrides where the Kubernetes JWT is read from
func WithServiceAccountTokenPath(path string) Option {
	return func(vc *VaultClient) {
		vc.tokenPath = path
	}
}

type loginResponse struct {
	Auth *struct {
		ClientToken string `json:"client_token"`
	} `json:"auth"`
	Errors []string `json:"errors"`
}

type kvResponse struct {
	Data *struct {
		Data map[string]interface{} `json:"data"`
	} `json:"data"`
	Errors []string `json:"errors"`
}

// New creates a Vault client and logs in with the Kubernetes auth method
func New(ctx context.Context, addr, kvSecretPath, role string, opts ...Option) (*VaultClient, error) {
	vc := &VaultClient{
		addr:         strings.TrimRight(addr, "/"),
		role:         role,
		kvSecretPath: strings.Trim(kvSecretPath, "/"),
		tokenPath:    defaultServiceAccountTokenPath,
		http:         resty.New().SetHeader("Content-Type", "application/json"),
	}
	for _, opt := range opts {
		opt(vc)
	}

	token, err := vc.login(ctx)
	if err != nil {
		return nil, err
	}
	vc.token = token
	return vc, nil
}

// GetKubernetesToken reads the Kubernetes service account token
func (vc *VaultClient) GetKubernetesToken() (string, error) {
	token, err := os.ReadFile(vc.tokenPath)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %v", err)
	}
	return strings.TrimSpace(string(token)), nil
}

func (vc *VaultClient) login(ctx context.Context) (string, error) {
	k8sToken, err := vc.GetKubernetesToken()
	if err != nil {
		return "", err
	}

	var result loginResponse
	resp, err := vc.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"jwt":  k8sToken,
			"role": vc.role,
		}).
		SetResult(&result).
		SetError(&result).
		Post(fmt.Sprintf("%s/v1/auth/kubernetes/login", vc.addr))
	if err != nil {
		return "", err
	}

	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("vault authentication failed with status %d: %s", resp.StatusCode(), strings.Join(result.Errors, "; "))
	}
	if result.Auth == nil || result.Auth.ClientToken == "" {
		return "", fmt.Errorf("vault returned empty client_token")
	}

	return result.Auth.ClientToken, nil
}

// GetKV retrieves one key from the configured KV v2 secret
func (vc *VaultClient) GetKV(ctx context.Context, secretKey string) (string, error) {
	var result kvResponse
	resp, err := vc.http.R().
		SetContext(ctx).
		SetHeader("X-Vault-Token", vc.token).
		SetResult(&result).
		SetError(&result).
		Get(fmt.Sprintf("%s/v1/%s", vc.addr, vc.kvSecretPath))
	if err != nil {
		return "", err
	}

	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("vault KV get failed with status %d: %s", resp.StatusCode(), strings.Join(result.Errors, "; "))
	}
	if result.Data == nil || result.Data.Data == nil {
		return "", fmt.Errorf("vault response missing nested 'data' field")
	}

	secretInterface, exists := result.Data.Data[secretKey]
	if !exists {
		return "", fmt.Errorf("secret key '%s' not found", secretKey)
	}

	secret, ok := secretInterface.(string)
	if !ok {
		return "", fmt.Errorf("secret value for key '%s' is not a string", secretKey)
	}

	return secret, nil
}
