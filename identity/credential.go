package identity

// Credential is the token pair and principal identifying an authenticated
// actor within one domain.
type Credential struct {
	Domain       Domain
	Token        string
	RefreshToken string
	Principal    Principal
}

// Check verifies the structural invariants shared by every persisted
// credential: a known domain and a principal of the same
// domain with an id. Token expiry is checked by the jwt package, not here.
func (c Credential) Check() error {
	if !c.Domain.Valid() {
		return ErrUnknownDomain
	}
	if err := ValidatePrincipal(c.Principal); err != nil {
		return err
	}
	if c.Principal.Domain() != c.Domain {
		return ErrPrincipalDomainMismatch
	}
	return nil
}
