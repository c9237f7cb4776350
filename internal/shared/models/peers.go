package models

type Peer struct {
	Addr Addr
}
