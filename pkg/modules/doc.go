// Package modules contains the provisioning and deployment modules.
//
// Each module translates one concern (base server setup, nginx, systemd
// units, Tailscale, backups) into pyinfra operations emitted through the
// script builder. Modules run at generation time; the resulting script is
// executed by the pyinfra CLI against every host in the inventory, so
// per-host behavior is expressed with host.data lookups inside the script
// rather than by generating one script per host.
package modules
