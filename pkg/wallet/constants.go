package wallet

const (
	operationFetchBalances    = "fetch_balances"
	operationFetchHistory     = "fetch_history"
	operationSendExternal     = "send_external"
	operationSwapQuote        = "swap_quote"
	operationExecuteSwap      = "execute_swap"
	operationDepositAddress   = "deposit_address"
	operationLocalSend        = "local_send"
	operationLocalReceive     = "local_receive"
	operationLocalConvert     = "local_convert"
	operationInternalTransfer = "internal_transfer"
	operationRehydrate        = "rehydrate"
	operationPersist          = "persist"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	errorSubjectAsset       = "asset"
	errorSubjectAmount      = "amount"
	errorSubjectAddress     = "address"
	errorSubjectBalance     = "balance"
	errorSubjectQuote       = "quote"
	errorSubjectCache       = "cache"
	errorSubjectRemote      = "remote"
	errorCodeNotFound       = "not_found"
	errorCodeInvalid        = "invalid"
	errorCodeInsufficient   = "insufficient"
	errorCodeSameAsset      = "same_asset"
	errorCodeRequestFailed  = "request_failed"
	errorCodeDecode         = "decode"
	errorCodeEncode         = "encode"
	errorCodeWrite          = "write"
	errorCodeRead           = "read"
	errorCodeNoSubject      = "no_subject"
	errorCodeNoBackend      = "no_backend"
	errorCodeMissingQuoteID = "missing_quote_id"

	// CacheKeyAssets holds the JSON array of the last known AssetBalance list.
	CacheKeyAssets = "cryptoWallet"
	// CacheKeyTransactions holds the JSON array of the last known Transaction list.
	CacheKeyTransactions = "cryptoTransactions"

	addressUnavailable   = "Address not available"
	addressUnknown       = "Unknown"
	addressExternal      = "External Wallet"
	internalAddressLabel = "Internal: "
	minimumAddressLength = 10
	addressPreviewLength = 8
	defaultDisplayColor  = "#6B7280"
	defaultChain         = "ethereum"
	quoteAmountDecimals  = 6
)
