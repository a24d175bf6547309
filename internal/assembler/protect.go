package assembler

import (
	"bytes"
	"context"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/local/pdftoolkit/internal/operation"
	"github.com/local/pdftoolkit/internal/pdferr"
)

const aesKeyLength = 256

// Protect rewrites the document and encrypts it with AES-256.
func (a *Assembler) Protect(ctx context.Context, in Input, op *operation.Protect) (*Result, error) {
	res, err := a.Assemble(ctx, in, op)
	if err != nil {
		return nil, err
	}
	conf := model.NewAESConfiguration(op.Password, op.OwnerPassword, aesKeyLength)
	var buf bytes.Buffer
	if err := api.Encrypt(bytes.NewReader(res.Data), &buf, conf); err != nil {
		return nil, err
	}
	if err := a.checkOutput(buf.Bytes(), res.Pages); err != nil {
		return nil, err
	}
	res.Data = buf.Bytes()
	return res, nil
}

// Unlock opens an encrypted document with the password and rewrites it
// without encryption. Unencrypted input is rewritten as is. A wrong
// password is a parse failure.
func (a *Assembler) Unlock(ctx context.Context, in Input, op *operation.Unlock) (*Result, error) {
	if err := a.checkInput(in); err != nil {
		return nil, err
	}
	current, err := api.ReadContext(bytes.NewReader(in.Data), passwordConfig(op.Password))
	if err != nil {
		return nil, pdferr.Parse(in.Name, err)
	}
	plain := in
	if current.Encrypt != nil {
		var buf bytes.Buffer
		if err := api.Decrypt(bytes.NewReader(in.Data), &buf, passwordConfig(op.Password)); err != nil {
			return nil, pdferr.Parse(in.Name, err)
		}
		plain.Data = buf.Bytes()
	}
	res, err := a.Assemble(ctx, plain, op)
	if err != nil {
		return nil, err
	}
	res.InputBytes = int64(len(in.Data))
	return res, nil
}

func passwordConfig(pw string) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.UserPW = pw
	conf.OwnerPW = pw
	return conf
}
