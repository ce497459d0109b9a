// Package inventory loads declarative fleet definitions from YAML.
//
// An inventory document lists credentials, servers, devices, databases,
// site groups, sites and applications by name. Loading upserts each
// entry inside one transaction: rows are matched by name, non-zero spec
// fields overwrite, zero fields leave the stored value alone. Inventory
// never deletes; use the API to retire resources.
//
// Credential secrets are not written into inventory files. A credential
// entry names an environment variable via secret_env and the value is
// read at load time, so files can live in a config repo.
package inventory
