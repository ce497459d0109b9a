package inventory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `
credentials:
  - name: ops-ssh
    kind: ssh_key
    username: ops
    secret_env: OPS_SSH_KEY
servers:
  - name: web-1
    host: 10.0.0.11
    ssh_user: deploy
    credential: ops-ssh
    jump_host: bastion
    tags: web,frontend
  - name: bastion
    host: bastion.example.com
    port: 2222
devices:
  - name: core-sw-1
    address: 10.0.0.2
    device_type: switch
    probe_port: 161
databases:
  - name: orders
    engine: postgres
    host: db-1.internal
    db_name: orders
    username: app
    server: web-1
site_groups:
  - name: storefront
    description: Customer facing
sites:
  - name: shop
    url: https://shop.example.com
    group: storefront
    expected_status: 200
    keyword: Checkout
    enabled: true
applications:
  - name: shop-api
    site: shop
    server: web-1
    kind: api
    port: 8080
    health_path: /healthz
`

func TestParse(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleDocument))
	require.NoError(t, err)

	require.Len(t, doc.Credentials, 1)
	assert.Equal(t, "ops-ssh", doc.Credentials[0].Name)
	assert.Equal(t, "ssh_key", doc.Credentials[0].Kind)
	assert.Equal(t, "OPS_SSH_KEY", doc.Credentials[0].SecretEnv)

	require.Len(t, doc.Servers, 2)
	assert.Equal(t, "bastion", doc.Servers[0].JumpHost)
	assert.Equal(t, 2222, doc.Servers[1].Port)

	require.Len(t, doc.Devices, 1)
	assert.Equal(t, "switch", doc.Devices[0].DeviceType)
	assert.Equal(t, 161, doc.Devices[0].ProbePort)

	require.Len(t, doc.Databases, 1)
	assert.Equal(t, "web-1", doc.Databases[0].Server)

	require.Len(t, doc.SiteGroups, 1)
	require.Len(t, doc.Sites, 1)
	require.NotNil(t, doc.Sites[0].Enabled)
	assert.True(t, *doc.Sites[0].Enabled)

	require.Len(t, doc.Applications, 1)
	assert.Equal(t, "/healthz", doc.Applications[0].HealthPath)

	require.NoError(t, doc.Validate())
}

func TestParseEmpty(t *testing.T) {
	doc, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, doc.Servers)
	assert.Empty(t, doc.Credentials)
}

func TestParseUnknownField(t *testing.T) {
	_, err := Parse(strings.NewReader(`
servers:
  - name: web-1
    hosst: 10.0.0.11
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse inventory")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantErr string
	}{
		{
			name: "server without host",
			doc: Document{
				Servers: []ServerSpec{{Name: "web-1"}},
			},
			wantErr: `servers[0] (web-1)`,
		},
		{
			name: "credential with bad kind",
			doc: Document{
				Credentials: []CredentialSpec{{Name: "c", Kind: "token"}},
			},
			wantErr: `credentials[0] (c)`,
		},
		{
			name: "site with bad url",
			doc: Document{
				Sites: []SiteSpec{{Name: "shop", URL: "not a url"}},
			},
			wantErr: `sites[0] (shop)`,
		},
		{
			name: "device with out of range probe port",
			doc: Document{
				Devices: []DeviceSpec{{Name: "sw", Address: "10.0.0.2", ProbePort: 70000}},
			},
			wantErr: `devices[0] (sw)`,
		},
		{
			name: "duplicate server names",
			doc: Document{
				Servers: []ServerSpec{
					{Name: "web-1", Host: "a"},
					{Name: "web-1", Host: "b"},
				},
			},
			wantErr: `servers: duplicate name "web-1"`,
		},
		{
			name: "duplicate names allowed across sections",
			doc: Document{
				Servers: []ServerSpec{{Name: "shop", Host: "a"}},
				Sites:   []SiteSpec{{Name: "shop", URL: "https://shop.example.com"}},
			},
		},
		{
			name: "valid document",
			doc: Document{
				Credentials: []CredentialSpec{{Name: "c", Kind: "password"}},
				Databases:   []DatabaseSpec{{Name: "d", Engine: "redis", Host: "h"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
