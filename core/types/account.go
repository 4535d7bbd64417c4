package types

// Account is the native record stored for every address: its lamport balance,
// the program that owns it and the program-defined data blob.
type Account struct {
	Lamports   uint64 `json:"lamports"`
	Owner      Pubkey `json:"owner"`
	Space      uint64 `json:"space"` // data capacity reserved at allocation
	Data       []byte `json:"data"`
	Executable bool   `json:"executable"`
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	if a.Data != nil {
		clone.Data = append([]byte(nil), a.Data...)
	}
	return &clone
}

// IsUninitialized reports whether the address has never been allocated by a
// program: it is system-owned and carries no data.
func (a *Account) IsUninitialized() bool {
	if a == nil {
		return true
	}
	return a.Owner == SystemProgramID && a.Space == 0 && len(a.Data) == 0
}
