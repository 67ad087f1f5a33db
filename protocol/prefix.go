package protocol

const (
	// Metadata store prefixes
	PrefixMeta        = "meta:"
	PrefixMetaPayload = "meta:payload:" // meta:payload:Address = RemotePayload json
	PrefixMetaMagic   = "meta:magic:"   // meta:magic:Address = Magic hash of the stored payload
	PrefixMetaCount   = "meta:count:"   // meta:count:Address = Accepted write count
)
