// Package gpg drives the external encryption tool as a subprocess.
package gpg

// DecryptArgs builds the argument list for decrypting stdin. When the caller
// cannot show a prompt, pinentry is told to fail instead of asking.
func DecryptArgs(opts []string, canPrompt bool) []string {
	args := make([]string, 0, len(opts)+3)
	args = append(args, opts...)
	if !canPrompt {
		args = append(args, "--pinentry-mode=error")
	}
	return append(args, "--decrypt", "-")
}

// EncryptArgs builds the argument list for encrypting stdin for recipient.
func EncryptArgs(opts []string, recipient string) []string {
	args := make([]string, 0, len(opts)+4)
	args = append(args, opts...)
	return append(args, "--recipient", recipient, "--encrypt", "-")
}
