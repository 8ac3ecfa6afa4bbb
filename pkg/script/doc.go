// Package script emits the Python sources handed to the pyinfra CLI: the
// inventory file and the deployment script. It is pure string templating;
// nothing here parses or validates the generated text.
package script
