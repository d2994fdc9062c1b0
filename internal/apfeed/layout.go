package apfeed

// RecordLength is the length of every feed record in characters.
const RecordLength = 524

// Field is a half-open byte range of a feed record.
type Field struct {
	Name     string
	Start    int
	End      int
	Reserved bool // always blank-filled
}

// Width returns the number of characters the field occupies.
func (f Field) Width() int {
	return f.End - f.Start
}

// Record fields, in record order. Offsets are the contract with the
// downstream accounts-payable batch and must not move.
var (
	FieldFeedName         = Field{Name: "feed_name", Start: 0, End: 15}
	FieldBatchID          = Field{Name: "batch_id_nbr", Start: 15, End: 29}
	FieldOrgDocNumber     = Field{Name: "org_doc_nbr", Start: 29, End: 36}
	FieldEmployeeInd      = Field{Name: "emp_ind", Start: 36, End: 37}
	FieldVendorCode       = Field{Name: "vend_nbr", Start: 37, End: 47}
	FieldInvoiceNumber    = Field{Name: "vend_assign_inv_nbr", Start: 47, End: 62}
	FieldInvoiceDate      = Field{Name: "vend_assign_inv_dt", Start: 62, End: 70}
	FieldAddressSelect    = Field{Name: "addr_select_vend_nbr", Start: 70, End: 84}
	FieldRemittance       = Field{Name: "remittance", Start: 84, End: 308, Reserved: true}
	FieldGoodsReceived    = Field{Name: "goods_received_dt", Start: 308, End: 316}
	FieldShipZip          = Field{Name: "org_shp_zip_cd", Start: 316, End: 327}
	FieldShipState        = Field{Name: "org_shp_state_cd", Start: 327, End: 329}
	FieldPaymentGroup     = Field{Name: "pmt_grp_cd", Start: 329, End: 330}
	FieldTerms            = Field{Name: "fob_disc_term", Start: 330, End: 335, Reserved: true}
	FieldScheduledPayment = Field{Name: "scheduled_pmt_dt", Start: 335, End: 343}
	FieldNonCheckInd      = Field{Name: "pmt_non_check_ind", Start: 343, End: 344}
	FieldAttachmentInd    = Field{Name: "attachment_req_ind", Start: 344, End: 345}
	FieldLineNumber       = Field{Name: "pmt_line_nbr", Start: 345, End: 350}
	FieldChartCode        = Field{Name: "fin_coa_cd", Start: 350, End: 351}
	FieldChartPad         = Field{Name: "fin_coa_pad", Start: 351, End: 352, Reserved: true}
	FieldAccount          = Field{Name: "account_nbr", Start: 352, End: 359}
	FieldSubAccount       = Field{Name: "sub_acct_nbr", Start: 359, End: 364, Reserved: true}
	FieldObjectCode       = Field{Name: "fin_object_cd", Start: 364, End: 368}
	FieldSubObjectCode    = Field{Name: "fin_sub_obj_cd", Start: 368, End: 371, Reserved: true}
	FieldProjectCode      = Field{Name: "project_cd", Start: 371, End: 381, Reserved: true}
	FieldOrgReference     = Field{Name: "org_reference_id", Start: 381, End: 389}
	FieldTaxCode          = Field{Name: "pmt_tax_cd", Start: 389, End: 390}
	FieldAmount           = Field{Name: "pmt_amt", Start: 390, End: 402}
	FieldApplyDiscountInd = Field{Name: "apply_disc_ind", Start: 402, End: 403}
	FieldEFTOverrideInd   = Field{Name: "eft_override_ind", Start: 403, End: 404}
	FieldPurpose          = Field{Name: "ap_pmt_purpose_desc", Start: 404, End: 524, Reserved: true}
)

// Layout lists every field of a record, reserved ranges included, in order.
var Layout = []Field{
	FieldFeedName,
	FieldBatchID,
	FieldOrgDocNumber,
	FieldEmployeeInd,
	FieldVendorCode,
	FieldInvoiceNumber,
	FieldInvoiceDate,
	FieldAddressSelect,
	FieldRemittance,
	FieldGoodsReceived,
	FieldShipZip,
	FieldShipState,
	FieldPaymentGroup,
	FieldTerms,
	FieldScheduledPayment,
	FieldNonCheckInd,
	FieldAttachmentInd,
	FieldLineNumber,
	FieldChartCode,
	FieldChartPad,
	FieldAccount,
	FieldSubAccount,
	FieldObjectCode,
	FieldSubObjectCode,
	FieldProjectCode,
	FieldOrgReference,
	FieldTaxCode,
	FieldAmount,
	FieldApplyDiscountInd,
	FieldEFTOverrideInd,
	FieldPurpose,
}

// DataFields returns the non-reserved fields in record order.
func DataFields() []Field {
	fields := make([]Field, 0, len(Layout))
	for _, f := range Layout {
		if !f.Reserved {
			fields = append(fields, f)
		}
	}
	return fields
}
