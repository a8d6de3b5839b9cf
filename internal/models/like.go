package models

import "strings"

// Like is a single vote on a post or a comment.
type Like struct {
	WalletAddress string `json:"wallet_address" validate:"required"`
}

// Likes is the set of voters for one item. It is stored as a slice because the
// API sends it that way, but every operation treats it as a set keyed by the
// case-insensitive wallet address. Methods never modify the receiver.
type Likes []Like

func sameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}

// Contains reports whether address has voted.
func (l Likes) Contains(address string) bool {
	for _, like := range l {
		if sameAddress(like.WalletAddress, address) {
			return true
		}
	}
	return false
}

// Add returns a new set with address added. Adding an existing voter
// returns a copy of the set unchanged.
func (l Likes) Add(address string) Likes {
	out := make(Likes, 0, len(l)+1)
	out = append(out, l...)
	if l.Contains(address) {
		return out
	}
	return append(out, Like{WalletAddress: address})
}

// Remove returns a new set without address.
func (l Likes) Remove(address string) Likes {
	out := make(Likes, 0, len(l))
	for _, like := range l {
		if !sameAddress(like.WalletAddress, address) {
			out = append(out, like)
		}
	}
	return out
}

// Toggle adds address if absent and removes it otherwise. liked is the
// membership after the toggle.
func (l Likes) Toggle(address string) (next Likes, liked bool) {
	if l.Contains(address) {
		return l.Remove(address), false
	}
	return l.Add(address), true
}

// Addresses returns the voters in order.
func (l Likes) Addresses() []string {
	out := make([]string, 0, len(l))
	for _, like := range l {
		out = append(out, like.WalletAddress)
	}
	return out
}

// Dedup collapses repeated voters, keeping the first occurrence.
func (l Likes) Dedup() Likes {
	out := make(Likes, 0, len(l))
	for _, like := range l {
		if !out.Contains(like.WalletAddress) {
			out = append(out, like)
		}
	}
	return out
}
